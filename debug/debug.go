package debug

import (
	"fmt"
	"os"
	"strconv"

	"github.com/segmentio/encoding/json"
)

type debug struct {
	HTTP     bool
	RPC      bool
	Validate bool
}

var d *debug

func init() {
	d = &debug{}
	d.HTTP = boolEnv("SOFA_DEBUG_HTTP")
	d.RPC = boolEnv("SOFA_DEBUG_RPC")
	d.Validate = boolEnv("SOFA_DEBUG_VALIDATE")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func HTTP() bool {
	return d.HTTP
}
func RPC() bool {
	return d.RPC
}
func Validate() bool {
	return d.Validate
}

func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", v)
		return
	}
	os.Stderr.Write(append(d, '\n'))
}

func Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
