package main

import (
	"github.com/goliatone/go-signup/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		config.Exitf("signup: %v", err)
	}
}
