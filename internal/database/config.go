// Copyright 2023 the DealerSync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the connection parameters for the warehouse database. The
// warehouse speaks the Postgres wire protocol, so the same configuration
// works against Redshift-style warehouses and a local Postgres in tests.
type Config struct {
	Name               string        `env:"DB_NAME"`
	User               string        `env:"DB_USER"`
	Host               string        `env:"DB_HOST, default=localhost"`
	Port               string        `env:"DB_PORT, default=5439"`
	SSLMode            string        `env:"DB_SSLMODE, default=require"`
	ConnectionTimeout  uint          `env:"DB_CONNECT_TIMEOUT"`
	Password           string        `env:"DB_PASSWORD"`
	SSLCertPath        string        `env:"DB_SSLCERT"`
	SSLKeyPath         string        `env:"DB_SSLKEY"`
	SSLRootCertPath    string        `env:"DB_SSLROOTCERT"`
	PoolMinConnections string        `env:"DB_POOL_MIN_CONNS"`
	PoolMaxConnections string        `env:"DB_POOL_MAX_CONNS"`
	PoolMaxConnLife    time.Duration `env:"DB_POOL_MAX_CONN_LIFETIME"`
	PoolMaxConnIdle    time.Duration `env:"DB_POOL_MAX_CONN_IDLE_TIME"`
	PoolHealthCheck    time.Duration `env:"DB_POOL_HEALTH_CHECK_PERIOD"`
}

// DatabaseConfig satisfies the setup.DatabaseConfigProvider interface when
// embedded in a server config.
func (c *Config) DatabaseConfig() *Config {
	return c
}

// ConnectionString builds a keyword/value connection string suitable for the
// pgx driver.
func (c *Config) ConnectionString() string {
	vals := map[string]string{}
	setIfNotEmpty(vals, "dbname", c.Name)
	setIfNotEmpty(vals, "user", c.User)
	setIfNotEmpty(vals, "host", c.Host)
	setIfNotEmpty(vals, "port", c.Port)
	setIfNotEmpty(vals, "sslmode", c.SSLMode)
	setIfPositive(vals, "connect_timeout", c.ConnectionTimeout)
	setIfNotEmpty(vals, "password", c.Password)
	setIfNotEmpty(vals, "sslcert", c.SSLCertPath)
	setIfNotEmpty(vals, "sslkey", c.SSLKeyPath)
	setIfNotEmpty(vals, "sslrootcert", c.SSLRootCertPath)
	setIfNotEmpty(vals, "pool_min_conns", c.PoolMinConnections)
	setIfNotEmpty(vals, "pool_max_conns", c.PoolMaxConnections)
	setIfPositiveDuration(vals, "pool_max_conn_lifetime", c.PoolMaxConnLife)
	setIfPositiveDuration(vals, "pool_max_conn_idle_time", c.PoolMaxConnIdle)
	setIfPositiveDuration(vals, "pool_health_check_period", c.PoolHealthCheck)

	var p []string
	for _, k := range connectionStringKeyOrder {
		if v, ok := vals[k]; ok {
			p = append(p, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return strings.Join(p, " ")
}

// connectionStringKeyOrder fixes the emission order so the built string is
// deterministic and testable.
var connectionStringKeyOrder = []string{
	"dbname", "user", "host", "port", "sslmode", "connect_timeout",
	"password", "sslcert", "sslkey", "sslrootcert",
	"pool_min_conns", "pool_max_conns", "pool_max_conn_lifetime",
	"pool_max_conn_idle_time", "pool_health_check_period",
}

func setIfNotEmpty(m map[string]string, key, val string) {
	if val != "" {
		m[key] = val
	}
}

func setIfPositive(m map[string]string, key string, val uint) {
	if val > 0 {
		m[key] = fmt.Sprintf("%d", val)
	}
}

func setIfPositiveDuration(m map[string]string, key string, d time.Duration) {
	if d > 0 {
		m[key] = d.String()
	}
}
