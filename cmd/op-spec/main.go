package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	opspec "github.com/ethereum-optimism/infra/op-spec"
	"github.com/ethereum-optimism/infra/op-spec/registry"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	reg := registry.NewRegistry(log.Root())
	registerSuites(reg)
	opspec.Main(reg, fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate))
}
