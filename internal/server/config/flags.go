package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/simplepm/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-r string   Redis address (host:port)
//	-p string   Redis password
//	-t int      account cache snapshot TTL, minutes
//	-e int      entry cache snapshot TTL, minutes
//	-k int      RSA key size in bits
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-r", "-p", "-t", "-e", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisPassword, "p", config.RedisPassword, "redis password")

	accountCacheTTL := fs.Int("t", int(config.AccountCacheTTL.Minutes()), "account_cache_ttl (in minutes)")
	entryCacheTTL := fs.Int("e", int(config.EntryCacheTTL.Minutes()), "entry_cache_ttl (in minutes)")

	fs.IntVar(&config.RSAKeyBits, "k", config.RSAKeyBits, "RSA key size in bits")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccountCacheTTL = time.Duration(*accountCacheTTL) * time.Minute
	config.EntryCacheTTL = time.Duration(*entryCacheTTL) * time.Minute
}
