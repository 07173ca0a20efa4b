package config

import (
	"flag"
	"io"
	"os"

	"github.com/dmitrijs2005/stockpile/internal/flagx"
)

// parseFlags overlays command-line flags:
//
//	-a string     gRPC bind address (e.g. ":50051")
//	-w string     HTTP bind address (e.g. ":8080")
//	-d string     PostgreSQL DSN
//	-s string     HS256 signing secret
//	-b string     session backend: redis | postgres
//	-r string     redis address
//	-l string     log level: debug | info | warn | error
//	-f string     log format: json | text
//	-p duration   expired session purge interval (postgres backend)
//
// os.Args is filtered first so that flags owned by other parsers (-c) are
// not rejected.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-w", "-d", "-s", "-b", "-r", "-l", "-f", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.SessionBackend, "b", config.SessionBackend, "session backend (redis|postgres)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (json|text)")
	fs.DurationVar(&config.PurgeInterval, "p", config.PurgeInterval, "expired session purge interval")

	return fs.Parse(args)
}
