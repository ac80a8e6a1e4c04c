// Package aggregates owns the transaction boundaries of randomization writes.
//
// Implementations compose the table-level repos from internal/data/repos/randomization
// and keep every invariant-critical mutation (list generation, activation,
// subject claims) together with its audit record inside one transaction.
package aggregates
