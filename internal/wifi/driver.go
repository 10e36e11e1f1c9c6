package wifi

import (
	"fmt"
	"net/netip"
)

// Mode is the operating mode of the radio.
type Mode int

const (
	// ModeNull keeps the driver started with no interface active.
	ModeNull Mode = iota
	// ModeStation joins an access point as a client.
	ModeStation
)

func (m Mode) String() string {
	switch m {
	case ModeNull:
		return "null"
	case ModeStation:
		return "station"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// 802.11 limits on the station configuration.
const (
	MaxSSIDLen     = 32
	MaxPasswordLen = 64
)

// StationConfig is the access point the station interface joins.
type StationConfig struct {
	SSID     string
	Password string
}

// EventType identifies a driver notification.
type EventType int

const (
	// EventStationDisconnected is sent when the station lost, or failed to
	// establish, its association.
	EventStationDisconnected EventType = iota + 1
	// EventStationGotIP is sent once the station interface has an address.
	EventStationGotIP
)

func (t EventType) String() string {
	switch t {
	case EventStationDisconnected:
		return "sta_disconnected"
	case EventStationGotIP:
		return "sta_got_ip"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// DisconnectReason tells why the station was disconnected.
type DisconnectReason int

const (
	ReasonUnspecified DisconnectReason = iota
	ReasonNoAPFound
	ReasonAuthFail
	ReasonBeaconTimeout
	ReasonConfigChanged
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonNoAPFound:
		return "no_ap_found"
	case ReasonAuthFail:
		return "auth_fail"
	case ReasonBeaconTimeout:
		return "beacon_timeout"
	case ReasonConfigChanged:
		return "config_changed"
	default:
		return "unspecified"
	}
}

// Event is a notification delivered by the driver.
type Event struct {
	Type EventType
	SSID string

	// Reason is set for EventStationDisconnected.
	Reason DisconnectReason
	// Addr is set for EventStationGotIP.
	Addr netip.Addr
}

// Driver is the network driver the Manager controls.
//
// Init hands the driver the channel it must deliver events on. Events may
// be sent from any goroutine; the Manager consumes them on a single
// goroutine. Connect starts an association attempt and returns without
// waiting for its outcome, which arrives as an Event.
type Driver interface {
	Init(events chan<- Event) error
	SetMode(mode Mode) error
	SetStationConfig(cfg StationConfig) error
	Start() error
	Connect() error
}
