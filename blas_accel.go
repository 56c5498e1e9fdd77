//go:build accelerate

package main

// #cgo LDFLAGS: -framework Accelerate
import "C"
import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// Building with -tags accelerate routes every mat.Dense product (the shared
// MLPs and the per-sample I-A contractions) through Apple's Accelerate BLAS.
func init() {
	blas64.Use(netlib.Implementation{})
}
