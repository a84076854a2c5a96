// Package ir provides the scalar value types shared by every imputer package.
//
// This package contains value definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Values are scalars only: Null, String, Int, Float, Bool. A fitted
//     substitution value is never a column or an expression.
//   - NaN and infinities are not representable in canonical JSON and are
//     rejected at construction time by FromGo.
//   - All JSON keys use snake_case.
package ir
