// Package main for the tenant manager service
package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/stackrox/mongo-tenant-manager/pkg/cmd"
)

func main() {
	// This is needed to make `glog` believe that the flags have already been parsed, otherwise
	// every log messages is prefixed by an error message stating the flags haven't been
	// parsed.
	_ = flag.CommandLine.Parse([]string{})

	// Always log to stderr by default, required for glog.
	if err := flag.Set("logtostderr", "true"); err != nil {
		glog.Info("unable to set logtostderr to true.")
	}
	defer glog.Flush()

	if err := cmd.Command().Execute(); err != nil {
		glog.Flush()
		os.Exit(1)
	}
}
