package xmltree

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestParse(t *testing.T) {
	is := is.New(t)

	root, err := Parse([]byte(`<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <device>
    <friendlyName> Router </friendlyName>
    <unknown><nested>x</nested></unknown>
    <serviceList>
      <service><serviceType>a</serviceType></service>
      <service><serviceType>b</serviceType></service>
    </serviceList>
  </device>
</root>`))
	is.NoErr(err)
	is.Equal(root.Name, "root")
	is.Equal(root.Space, "urn:schemas-upnp-org:device-1-0")
	is.Equal(root.Find("device", "friendlyName").Text, " Router ")
	is.Equal(root.Find("device").ChildText("friendlyName"), "Router")
	is.Equal(root.Find("device", "serviceList").Text, "")
	is.Equal(len(root.Find("device", "serviceList").ChildrenNamed("service")), 2)
	is.Equal(root.Find("device", "serviceList").Child("service").ChildText("serviceType"), "a")
	is.True(root.Find("device", "missing", "deeper") == nil)
	is.Equal(root.Find("device").ChildText("missing"), "")
}

func TestParse_Malformed(t *testing.T) {
	for name, doc := range map[string]string{
		"empty":        "",
		"unclosed":     "<root><device></root>",
		"two roots":    "<a/><b/>",
		"not xml":      "HTTP/1.1 200 OK",
		"text only":    "   hello   ",
		"bad entities": "<root>&nope;</root>",
	} {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)
			_, err := Parse([]byte(doc))
			is.True(err != nil)
		})
	}
}

func TestParse_Charset(t *testing.T) {
	is := is.New(t)

	root, err := Parse([]byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><root><name>Caf\xe9</name></root>"))
	is.NoErr(err)
	is.Equal(root.ChildText("name"), "Café")
}

func TestWalk(t *testing.T) {
	is := is.New(t)

	root, err := Parse([]byte(`<a><b><c/></b><d/></a>`))
	is.NoErr(err)

	var names []string
	root.Walk(func(n, parent *Node) bool {
		names = append(names, n.Name)
		return n.Name != "b"
	})
	is.Equal(strings.Join(names, ","), "a,b,d")
}

func TestMarshal(t *testing.T) {
	is := is.New(t)

	doc := Element("s:Envelope",
		Element("s:Body",
			Element("u:Ping",
				TextElement("Value", "a<b"),
			).Attr("xmlns:u", "urn:test"),
		),
	).Attr("xmlns:s", "http://schemas.xmlsoap.org/soap/envelope/")

	b, err := Marshal(doc)
	is.NoErr(err)
	is.True(strings.HasPrefix(string(b), `<?xml version="1.0"?>`))
	is.True(strings.Contains(string(b), `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">`))
	is.True(strings.Contains(string(b), `<u:Ping xmlns:u="urn:test"><Value>a&lt;b</Value></u:Ping>`))

	parsed, err := Parse(b)
	is.NoErr(err)
	is.Equal(parsed.Find("Body", "Ping", "Value").Text, "a<b")
	is.Equal(parsed.Find("Body", "Ping").Space, "urn:test")
}
