package instance

import "github.com/lojafacil/lojas-backend/pkg/env"

// GetID returns the dyno or host identifier of the running process.
func GetID() string {
	return env.Get("DYNO", env.Get("HOSTNAME", "local"))
}
