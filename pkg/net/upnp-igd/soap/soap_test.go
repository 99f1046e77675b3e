package soap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wanIP1 = "urn:schemas-upnp-org:service:WANIPConnection:1"

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest(wanIP1, "AddPortMapping",
		String("NewRemoteHost", ""),
		Uint("NewExternalPort", 51413),
		String("NewProtocol", "TCP"),
		Uint("NewInternalPort", 51413),
		String("NewInternalClient", "192.168.1.50"),
		Bool("NewEnabled", true),
		String("NewPortMappingDescription", "a & b"),
		Uint("NewLeaseDuration", 0),
	)
	require.NoError(t, err)

	// the key is stored as written, not canonicalized; some gateways match it case-sensitively
	assert.Equal(t, []string{`"urn:schemas-upnp-org:service:WANIPConnection:1#AddPortMapping"`}, req.Header[ActionHeader])
	assert.Empty(t, req.Header.Get(ActionHeader))
	assert.Equal(t, ContentType, req.Header.Get("Content-Type"))

	body := string(req.Body)
	assert.Contains(t, body, `<u:AddPortMapping xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1">`)
	assert.Contains(t, body, `<NewEnabled>1</NewEnabled>`)
	assert.Contains(t, body, `<NewPortMappingDescription>a &amp; b</NewPortMappingDescription>`)
	assert.Less(t, strings.Index(body, "NewExternalPort"), strings.Index(body, "NewProtocol"))

	action, args, err := ParseRequest(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "AddPortMapping", action)
	require.Len(t, args, 8)
	assert.Equal(t, Arg{Name: "NewPortMappingDescription", Value: "a & b"}, args[6])
}

func TestBuildRequest_Invalid(t *testing.T) {
	_, err := BuildRequest("", "GetExternalIPAddress")
	assert.Error(t, err)

	_, err = BuildRequest(wanIP1, "")
	assert.Error(t, err)

	_, err = BuildRequest(wanIP1, "X", Arg{Value: "1"})
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	assert.Equal(t, "1", Bool("x", true).Value)
	assert.Equal(t, "0", Bool("x", false).Value)
}

func TestParseResponse(t *testing.T) {
	resp, fault, err := ParseResponse([]byte(`<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">
  <s:Body>
    <u:GetExternalIPAddressResponse xmlns:u="urn:schemas-upnp-org:service:WANIPConnection:1">
      <NewExternalIPAddress>203.0.113.7</NewExternalIPAddress>
    </u:GetExternalIPAddressResponse>
  </s:Body>
</s:Envelope>`))
	require.NoError(t, err)
	require.Nil(t, fault)
	assert.Equal(t, "GetExternalIPAddress", resp.Action)

	ip, ok := resp.Field("NewExternalIPAddress")
	assert.True(t, ok)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestParseResponse_Fault(t *testing.T) {
	// The fault is classified by structure only; status codes never reach the codec.
	resp, fault, err := ParseResponse([]byte(`<?xml version="1.0"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Client</faultcode>
      <faultstring>UPnPError</faultstring>
      <detail>
        <UPnPError xmlns="urn:schemas-upnp-org:control-1-0">
          <errorCode> 718 </errorCode>
          <errorDescription>ConflictInMappingEntry</errorDescription>
        </UPnPError>
      </detail>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`))
	require.NoError(t, err)
	require.Nil(t, resp)
	require.NotNil(t, fault)

	assert.Equal(t, 718, fault.Code)
	assert.Equal(t, "ConflictInMappingEntry", fault.Description)
	assert.Equal(t, "SOAP-ENV:Client", fault.FaultCode)
	assert.Equal(t, "UPnPError", fault.FaultString)
}

func TestParseResponse_FaultWithoutDetail(t *testing.T) {
	_, fault, err := ParseResponse([]byte(`<Envelope><Body><Fault><faultstring>boom</faultstring></Fault></Body></Envelope>`))
	require.NoError(t, err)
	require.NotNil(t, fault)
	assert.Equal(t, 0, fault.Code)
	assert.Contains(t, fault.Error(), "boom")
}

func TestParseResponse_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"truncated":  `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>`,
		"html":       `<html><body>500</body></html>`,
		"no body":    `<Envelope><Header/></Envelope>`,
		"empty":      ``,
		"plain text": `Internal Server Error`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseResponse([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestBuildFault(t *testing.T) {
	b, err := BuildFault(714, "NoSuchEntryInArray")
	require.NoError(t, err)

	resp, fault, err := ParseResponse(b)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, &Fault{
		FaultCode:   "s:Client",
		FaultString: "UPnPError",
		Code:        714,
		Description: "NoSuchEntryInArray",
	}, fault)
}

func TestRoundTrip(t *testing.T) {
	args := []Arg{
		String("NewRemoteHost", ""),
		Uint("NewExternalPort", 65535),
		String("NewProtocol", "UDP"),
		Uint("NewInternalPort", 1),
		String("NewInternalClient", "10.0.0.2"),
		Bool("NewEnabled", false),
		String("NewPortMappingDescription", "<echo>"),
		Uint("NewLeaseDuration", 4294967295),
	}

	req, err := BuildRequest(wanIP1, "GetSpecificPortMappingEntry", args...)
	require.NoError(t, err)

	action, got, err := ParseRequest(req.Body)
	require.NoError(t, err)

	b, err := BuildResponse(wanIP1, action, got...)
	require.NoError(t, err)

	resp, fault, err := ParseResponse(b)
	require.NoError(t, err)
	require.Nil(t, fault)
	assert.Equal(t, "GetSpecificPortMappingEntry", resp.Action)
	for i, a := range args {
		assert.Equal(t, a.Name, resp.Order[i])
		assert.Equal(t, a.Value, resp.Fields[a.Name], a.Name)
	}
}
