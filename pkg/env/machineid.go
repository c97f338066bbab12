package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

const appID = "headband"

// MachineID retrieves the ID identifying this host as a device. The
// raw machine ID is hashed with the application ID and never exposed.
// It falls back to the application ID when the host has none.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return appID
	}
	return id[:16]
}
