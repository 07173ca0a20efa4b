package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/stockpile/internal/flagx"
)

// parseFlags overlays:
//
//	-a string     server gRPC address
//	-t duration   per-request timeout
//	-i duration   online check interval
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.DurationVar(&cfg.OnlineCheckInterval, "i", cfg.OnlineCheckInterval, "online check interval")

	return fs.Parse(args)
}
