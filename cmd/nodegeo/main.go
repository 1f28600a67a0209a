package main

import (
    "log"

    "github.com/spf13/cobra"

    nodegeocli "github.com/amirimatin/go-nodegeo/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "nodegeo",
        Short:         "validator node crawler and geo overlay builder",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    nodegeocli.AddAll(root)
    return root
}
