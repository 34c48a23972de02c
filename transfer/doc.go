// Package transfer defines the record of one box-to-box transfer of product
// and the identifiers it carries.
//
// A Record is built up in stages by the workflow controller: the source box
// and farmer first, then the operator's answers, then the destination, time
// stamp and optional location. Validate checks the ordering invariants at any
// stage; Ready gates submission.
package transfer
