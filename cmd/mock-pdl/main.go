package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shpitdev/pdl-enricher/pkg/mockpdl"
)

func main() {
	addr := defaultString("MOCK_PDL_ADDR", ":8080")
	fixtures := defaultString("MOCK_PDL_FIXTURES", "")
	apiKey := defaultString("MOCK_PDL_API_KEY", "")

	fs := flag.NewFlagSet("mock-pdl", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixtures, "fixtures", fixtures, "JSON file mapping profile URL to {status, data}")
	fs.StringVar(&apiKey, "api-key", apiKey, "Require this X-api-key on every request (empty accepts any)")
	_ = fs.Parse(os.Args[1:])

	srv := mockpdl.New()
	srv.RequireAPIKey(apiKey)
	if fixtures != "" {
		if err := srv.LoadFixtures(fixtures); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixtures error: %v\n", err)
			os.Exit(1)
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-pdl listening on %s%s (fixtures=%q)\n", addr, mockpdl.BulkPath, fixtures)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
