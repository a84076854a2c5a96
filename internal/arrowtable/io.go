package arrowtable

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// csvChunkSize is the number of rows per record batch when reading CSV.
const csvChunkSize = 4096

// ReadCSV loads a CSV stream with a header row, inferring column types.
// Empty cells and "NA" are read as null.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	rdr := csv.NewInferringReader(r,
		csv.WithHeader(true),
		csv.WithNullReader(true, "", "NA"),
		csv.WithChunk(csvChunkSize),
	)
	defer rdr.Release()

	var records []arrow.Record
	defer func() {
		for _, rec := range records {
			rec.Release()
		}
	}()

	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		records = append(records, rec)
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read csv %s: %w", name, err)
	}
	if rdr.Schema() == nil {
		return nil, fmt.Errorf("read csv %s: no header", name)
	}

	data := array.NewTableFromRecords(rdr.Schema(), records)
	defer data.Release()
	return New(name, data), nil
}

// ReadCSVFile opens path and loads it with ReadCSV.
func ReadCSVFile(name, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(name, f)
}

// ReadParquetFile loads a whole Parquet file.
func ReadParquetFile(ctx context.Context, name, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(parquet.NewReaderProperties(memory.DefaultAllocator)))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}

	data, err := rdr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer data.Release()
	return New(name, data), nil
}
