package idgen

import "errors"

// ErrInvalidMachineID is returned by New when machineID falls outside
// [0, 1023].
var ErrInvalidMachineID = errors.New("idgen: machine id must be in [0, 1023]")
