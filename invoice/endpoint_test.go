package invoice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	t.Parallel()

	stormAddr := "storm:029e03a901b85534ff1e92c43c74431f7ce72046060fcf" +
		"7a95c37e148f78c77255@relay.example.com:9735"

	tests := []struct {
		name  string
		input string
		want  EndpointScheme
		valid bool
	}{{
		name:  "storm endpoint",
		input: stormAddr,
		want:  EndpointStorm,
		valid: true,
	}, {
		name: "rgb http jsonrpc endpoint",
		input: "rgbhttpjsonrpc:" +
			"https://relay.example.com/rpc",
		want:  EndpointRGBHTTPJSONRPC,
		valid: true,
	}, {
		name:  "missing scheme",
		input: "relay.example.com",
		valid: false,
	}, {
		name:  "unknown scheme",
		input: "ftp:relay.example.com",
		valid: false,
	}, {
		name:  "storm without host",
		input: "storm:029e03a901b85534ff1e92c43c74431f7ce72046060fcf7a95c37e148f78c77255",
		valid: false,
	}, {
		name:  "storm with bad node id",
		input: "storm:deadbeef@relay.example.com",
		valid: false,
	}, {
		name:  "empty rgb url",
		input: "rgbhttpjsonrpc:",
		valid: false,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			endpoint, err := ParseEndpoint(test.input)
			if !test.valid {
				require.ErrorIs(t, err, ErrInvalidEndpoint)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, endpoint.Scheme)
			require.Equal(t, test.input, endpoint.String())
		})
	}
}
