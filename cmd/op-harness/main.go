package main

import (
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	harness "github.com/ethereum-optimism/infra/op-harness"
	"github.com/ethereum-optimism/infra/op-harness/flags"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/selftest"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

// DemoFailuresEnvVar opts in to the failing demo suites. They are left out
// by default so a plain run of the binary passes.
var DemoFailuresEnvVar = flags.EnvVarPrefix + "_DEMO_FAILURES"

func main() {
	harness.Version, harness.GitCommit, harness.GitDate = Version, GitCommit, GitDate

	reg := registry.New(registry.Config{Log: log.Root()})
	if err := register(reg, demoFailuresEnabled(os.Getenv)); err != nil {
		log.Crit("Failed to register self-test suites", "message", err)
	}

	os.Exit(harness.Main(reg, os.Args))
}

func register(reg *registry.Registry, withDemos bool) error {
	if err := selftest.Register(reg); err != nil {
		return err
	}
	if withDemos {
		return selftest.RegisterFailures(reg)
	}
	return nil
}

func demoFailuresEnabled(getenv func(string) string) bool {
	enabled, err := strconv.ParseBool(getenv(DemoFailuresEnvVar))
	return err == nil && enabled
}
