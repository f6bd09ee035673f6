package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds cache database configuration
type Config struct {
	// Path is the sqlite file. Empty or ":memory:" opens a private in-memory database.
	Path string
	// Name distinguishes in-memory databases opened by the same process.
	Name string
}

// InMemory reports whether the database lives only in process memory.
func (c *Config) InMemory() bool {
	return c.Path == "" || c.Path == ":memory:"
}

// DSN returns the sqlite connection string
func (c *Config) DSN() string {
	if c.InMemory() {
		name := c.Name
		if name == "" {
			name = "ledgersync"
		}
		name = strings.NewReplacer("/", "_", " ", "_", "?", "_", "#", "_").Replace(name)
		return fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_synchronous", "NORMAL")
	return "file:" + c.Path + "?" + q.Encode()
}
