// Package gpseq provides Gaussian process regression and classification over
// protein sequences, with marginal-likelihood or leave-one-out hyperparameter
// fitting and batch active learning for sequence selection.
//
// The model itself lives in the gp subpackage; sequences are opaque payloads
// interpreted only by a caller-supplied covariance kernel.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/gpseq/gp"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := gp.NewSequenceSet()
//	    // add sequences understood by your kernel ...
//	    y := mat.NewVecDense(3, []float64{0.4, 1.2, -0.3})
//
//	    model, err := gp.New(myKernel)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := model.Fit(X, y, nil); err != nil {
//	        log.Fatal(err)
//	    }
//	    preds, err := model.Predict(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(preds[0].Mean, preds[0].Variance)
//	}
package gpseq
