package description

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedIGD = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <URLBase>http://10.99.99.99:1/</URLBase>
  <device>
    <deviceType>urn:schemas-upnp-org:device:InternetGatewayDevice:1</deviceType>
    <friendlyName>Test Router</friendlyName>
    <UDN>uuid:11111111-2222-3333-4444-555555555555</UDN>
    <serviceList>
      <service>
        <serviceType>urn:schemas-upnp-org:service:Layer3Forwarding:1</serviceType>
        <serviceId>urn:upnp-org:serviceId:L3Forwarding1</serviceId>
        <controlURL>/ctl/L3F</controlURL>
        <eventSubURL>/evt/L3F</eventSubURL>
        <SCPDURL>/L3F.xml</SCPDURL>
      </service>
    </serviceList>
    <deviceList>
      <device>
        <deviceType>urn:schemas-upnp-org:device:WANDevice:1</deviceType>
        <vendorExtension><anything/></vendorExtension>
        <deviceList>
          <device>
            <deviceType>urn:schemas-upnp-org:device:WANConnectionDevice:1</deviceType>
            <serviceList>
              <service>
                <SCPDURL>/WANIPCn.xml</SCPDURL>
                <controlURL>/ctl/IPConn</controlURL>
                <serviceType>urn:schemas-upnp-org:service:WANIPConnection:1</serviceType>
              </service>
            </serviceList>
          </device>
        </deviceList>
      </device>
    </deviceList>
  </device>
</root>`

func TestParse_NestedDevices(t *testing.T) {
	doc, err := Parse([]byte(nestedIGD))
	require.NoError(t, err)

	assert.Equal(t, "Test Router", doc.Device.FriendlyName)
	assert.Equal(t, "uuid:11111111-2222-3333-4444-555555555555", doc.Device.UDN)
	require.Len(t, doc.Services, 2)

	svc, ok := Select(doc.Services, []string{
		"urn:schemas-upnp-org:service:WANIPConnection:2",
		"urn:schemas-upnp-org:service:WANIPConnection:1",
	})
	require.True(t, ok)
	assert.Equal(t, ServiceDescriptor{
		ServiceType: "urn:schemas-upnp-org:service:WANIPConnection:1",
		ControlPath: "/ctl/IPConn",
		SCPDPath:    "/WANIPCn.xml",
	}, svc, "missing optional fields are empty, element order is irrelevant")
}

func TestSelect_DocumentOrder(t *testing.T) {
	services := []ServiceDescriptor{
		{ServiceType: "urn:schemas-upnp-org:service:WANCommonInterfaceConfig:1"},
		{ServiceType: "urn:schemas-upnp-org:service:WANPPPConnection:1", ControlPath: "/ppp"},
		{ServiceType: "urn:schemas-upnp-org:service:WANIPConnection:1", ControlPath: "/ip"},
	}
	accepted := []string{
		"urn:schemas-upnp-org:service:WANIPConnection:1",
		"urn:schemas-upnp-org:service:WANPPPConnection:1",
	}

	svc, ok := Select(services, accepted)
	require.True(t, ok)
	assert.Equal(t, "/ppp", svc.ControlPath)

	_, ok = Select(services[:1], accepted)
	assert.False(t, ok)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`<root><device><serviceList></device></root>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestParse_NoServices(t *testing.T) {
	doc, err := Parse([]byte(`<root><device><deviceType>x</deviceType></device></root>`))
	require.NoError(t, err)
	assert.Empty(t, doc.Services)
}

func TestResolveURL(t *testing.T) {
	loc, err := url.Parse("http://192.168.1.1:5000/desc/rootDesc.xml?x=1")
	require.NoError(t, err)

	for path, want := range map[string]string{
		"/ctl/IPConn":                       "http://192.168.1.1:5000/ctl/IPConn",
		"ctl/IPConn":                        "http://192.168.1.1:5000/desc/ctl/IPConn",
		" /upnp/control?svc=1 ":             "http://192.168.1.1:5000/upnp/control?svc=1",
		"http://10.0.0.1:80/ctl/IPConn":     "http://192.168.1.1:5000/ctl/IPConn",
		"http://user@10.0.0.1/a/b?c=d#frag": "http://192.168.1.1:5000/a/b?c=d",
	} {
		got, err := ResolveURL(loc, path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got.String(), path)
	}

	_, err = ResolveURL(loc, "")
	assert.Error(t, err)
}

func TestParseSCPD(t *testing.T) {
	actions, err := ParseSCPD([]byte(`<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <actionList>
    <action>
      <name>AddAnyPortMapping</name>
      <argumentList>
        <argument><name>NewRemoteHost</name><direction>in</direction></argument>
        <argument><name>NewReservedPort</name><direction>out</direction></argument>
      </argumentList>
    </action>
    <action><name>GetExternalIPAddress</name></action>
    <action><argumentList/></action>
  </actionList>
  <serviceStateTable/>
</scpd>`))
	require.NoError(t, err)

	assert.Len(t, actions, 2)
	assert.True(t, actions.Has("AddAnyPortMapping"))
	assert.False(t, actions.Has("DeletePortMappingRange"))
	assert.Equal(t, []string{"NewRemoteHost", "NewReservedPort"}, actions["AddAnyPortMapping"])
}
