package config

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSNValue returns the MySQL DSN, built from the discrete fields unless an
// explicit dsn was configured.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if c.DSN != "" {
		return c.DSN
	}

	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	if loc, err := time.LoadLocation(c.Loc); err == nil {
		mc.Loc = loc
	}
	switch c.TLS {
	case "", "false", "off":
	default:
		mc.TLSConfig = c.TLS
	}

	params := map[string]string{"charset": c.Charset}
	for k, v := range c.Params {
		params[k] = v
	}
	mc.Params = params
	return mc.FormatDSN()
}

// SQLitePath returns the absolute sqlite database file, or the raw value
// for in-memory databases.
func (c DatabaseRuntimeConfig) SQLitePath() string {
	if isMemorySQLite(c.Path) {
		return c.Path
	}
	return ResolveRuntimePath(c.Path, defaultSQLitePath)
}

// RedisURL returns the connection URL, built from the discrete fields
// unless an explicit url was configured.
func (c RedisRuntimeConfig) RedisURL() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	if c.TLS {
		u.Scheme = "rediss"
	}
	switch {
	case c.Username != "" && c.Password != "":
		u.User = url.UserPassword(c.Username, c.Password)
	case c.Password != "":
		u.User = url.UserPassword("", c.Password)
	case c.Username != "":
		u.User = url.User(c.Username)
	}
	return u.String()
}
