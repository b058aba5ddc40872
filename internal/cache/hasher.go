package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"routeopt/internal/model"
)

// RouteKey hashes everything that can change a route: tenant, depot, the
// packages in submitted order and the effective options string. Package order
// is kept because tie-breaks depend on it.
func RouteKey(tenant string, depot model.Depot, pkgs []model.Package, options string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "t:%s;d:%.6f,%.6f,%s;o:%s;", tenant, depot.Location.Lat, depot.Location.Lng, depot.Label, options)
	for _, p := range pkgs {
		fmt.Fprintf(&b, "p:%s|%s|%.6f|%.6f|%s", p.ID, p.ExternalRef, p.Location.Lat, p.Location.Lng, p.Type)
		if p.Window != nil {
			fmt.Fprintf(&b, "|%d-%d", p.Window.Start, p.Window.End)
		}
		b.WriteByte(';')
	}
	return "route:" + QuickHash([]byte(b.String()))
}

// QuickHash is the hex SHA-256 of data.
func QuickHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
