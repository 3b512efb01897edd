package data

import (
	_ "embed"
)

// SampleProblem is a small valid problem payload used by tests and the
// devstack seed.
//
//go:embed sample-problem.json
var SampleProblem []byte
