package invoice

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// EndpointScheme discriminates the delivery channels a consignment endpoint
// can use.
type EndpointScheme uint8

const (
	// EndpointStorm delivers consignments over the Storm protocol. The
	// payload is a node address of the form "<pubkey>@<host>[:<port>]".
	EndpointStorm EndpointScheme = 1

	// EndpointRGBHTTPJSONRPC delivers consignments to an RGB HTTP
	// JSON-RPC server. The payload is the server URL.
	EndpointRGBHTTPJSONRPC EndpointScheme = 2
)

// ErrInvalidEndpoint is returned when a string does not match any endpoint
// grammar.
var ErrInvalidEndpoint = errors.New("incorrect consignment endpoint format")

// Endpoint is a side-channel address where the payer can deliver a
// consignment accompanying the payment.
type Endpoint struct {
	// Scheme selects the delivery channel.
	Scheme EndpointScheme

	// Payload is the channel specific address.
	Payload string
}

// schemeName maps a scheme to its text prefix.
func (s EndpointScheme) schemeName() string {
	switch s {
	case EndpointStorm:
		return "storm"
	case EndpointRGBHTTPJSONRPC:
		return "rgbhttpjsonrpc"
	default:
		return fmt.Sprintf("unknown<%d>", uint8(s))
	}
}

// String returns the "scheme:payload" form of the endpoint.
func (e Endpoint) String() string {
	return e.Scheme.schemeName() + ":" + e.Payload
}

// ParseEndpoint parses the "scheme:payload" form of an endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	scheme, payload, ok := strings.Cut(s, ":")
	if !ok {
		return Endpoint{}, ErrInvalidEndpoint
	}

	switch scheme {
	case "storm":
		if err := validateNodeAddr(payload); err != nil {
			return Endpoint{}, fmt.Errorf("%w: %v",
				ErrInvalidEndpoint, err)
		}
		return Endpoint{Scheme: EndpointStorm, Payload: payload}, nil

	case "rgbhttpjsonrpc":
		if payload == "" {
			return Endpoint{}, ErrInvalidEndpoint
		}
		return Endpoint{
			Scheme:  EndpointRGBHTTPJSONRPC,
			Payload: payload,
		}, nil

	default:
		return Endpoint{}, ErrInvalidEndpoint
	}
}

// validateNodeAddr checks the "<pubkey>@<host>" node address grammar used by
// the storm scheme.
func validateNodeAddr(s string) error {
	id, host, ok := strings.Cut(s, "@")
	if !ok || host == "" {
		return errors.New("node address must be <pubkey>@<host>")
	}

	raw, err := hex.DecodeString(id)
	if err != nil {
		return fmt.Errorf("invalid node id: %w", err)
	}
	if _, err := btcec.ParsePubKey(raw); err != nil {
		return fmt.Errorf("invalid node id: %w", err)
	}

	return nil
}
