// Package debug holds developer tracing switches read from the environment.
//
// Each switch is a boolean environment variable parsed with
// [strconv.ParseBool]; unset or unparsable means off.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Broadcast bool
	Lag       bool
	Adapt     bool
	Tx        bool
}

var d *debug

func init() {
	d = &debug{}
	d.Broadcast = boolEnv("OBS_DEBUG_BROADCAST")
	d.Lag = boolEnv("OBS_DEBUG_LAG")
	d.Adapt = boolEnv("OBS_DEBUG_ADAPT")
	d.Tx = boolEnv("OBS_DEBUG_TX")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Broadcast() bool {
	return d.Broadcast
}
func Lag() bool {
	return d.Lag
}
func Adapt() bool {
	return d.Adapt
}
func Tx() bool {
	return d.Tx
}

// Logf writes a trace line to stderr. Maps and slices are rendered as
// indented JSON.
func Logf(msg string, args ...any) {
	for i := range args {
		switch args[i].(type) {
		case map[string]any, []any:
			d, err := json.MarshalIndent(args[i], "   |", "  ")
			if err != nil {
				args[i] = fmt.Sprintf("%v", args[i])
				continue
			}
			args[i] = string(d)
		}
	}
	fmt.Fprintf(os.Stderr, msg, args...)
}
