package vertex

import (
	"strings"

	daederrors "github.com/wehubfusion/Daedalus/pkg/errors"
	"github.com/wehubfusion/Daedalus/pkg/host"
)

// ParseChannelArgs splits the pipe-delimited channel argument string the host
// passes at launch. Field 0 carries the native handle in hexadecimal; the
// returned slice keeps every field verbatim, handle included, so worker code
// sees the argument list exactly as the host sent it.
func ParseChannelArgs(raw string) (host.Handle, []string, error) {
	fields := strings.Split(raw, "|")

	h, err := host.ParseHandle(fields[0])
	if err != nil {
		return 0, nil, daederrors.NewConfiguration("malformed channel argument string", err)
	}

	return h, fields, nil
}
