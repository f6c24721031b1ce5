package neigh

import (
	"context"
	"errors"
	"net"
	"strings"
)

var lookupAddr = net.DefaultResolver.LookupAddr

// ResolveHostname returns the first reverse DNS name for ip without the
// trailing dot. A name that does not exist is not an error.
func ResolveHostname(ctx context.Context, ip string) (string, error) {
	names, err := lookupAddr(ctx, ip)
	if err != nil {
		var e *net.DNSError
		if !errors.As(err, &e) || !e.IsNotFound {
			return "", err
		}
	}
	if len(names) > 0 {
		return strings.TrimSuffix(names[0], "."), nil
	}
	return "", nil
}
