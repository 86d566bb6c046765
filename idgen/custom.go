package idgen

import (
	"github.com/rs/xid"
	"github.com/segmentio/ksuid"
)

// xidGenerator wires github.com/rs/xid as a Custom strategy, registered
// under the name "xid".
type xidGenerator struct{}

func (xidGenerator) Generate() (string, error) {
	return xid.New().String(), nil
}

// ksuidGenerator wires github.com/segmentio/ksuid as a Custom strategy,
// registered under the name "ksuid".
type ksuidGenerator struct{}

func (ksuidGenerator) Generate() (string, error) {
	return ksuid.New().String(), nil
}

func init() {
	RegisterCustom("xid", xidGenerator{})
	RegisterCustom("ksuid", ksuidGenerator{})
}
