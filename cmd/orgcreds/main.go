//go:build wasip1

// Command orgcreds is the credential boundary guest. Build it as a reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o orgcreds.wasm ./cmd/orgcreds
package main

import (
	_ "github.com/woxQAQ/orgcreds-wasm/internal/boundary"
)

func main() {}
