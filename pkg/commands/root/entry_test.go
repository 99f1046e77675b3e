package root

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelreyna/igd/pkg/events"
	"github.com/raphaelreyna/igd/pkg/net/upnp-igd/igdtest"
	"github.com/raphaelreyna/igd/pkg/output"
)

type result struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	t.Setenv("IGD_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))

	var stdout, stderr bytes.Buffer
	ctx := events.WithEvents(context.Background())
	ctx = output.WithWriters(ctx, &stdout, &stderr)

	err := execute(ctx, args)
	return result{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: events.GetExitCode(ctx),
		err:      err,
	}
}

func TestExternalIP(t *testing.T) {
	g := igdtest.New(t)

	r := run(t, "external-ip", "--location", g.Location())
	require.NoError(t, r.err)
	assert.Equal(t, igdtest.DefaultExternalIP+"\n", r.stdout)
	assert.Equal(t, events.ExitCodeSuccess, r.exitCode)
}

func TestAddListRemove(t *testing.T) {
	g := igdtest.New(t)

	r := run(t, "add", "--location", g.Location(),
		"--proto", "udp", "--external", "51413", "--internal", "10.0.0.2:9000",
		"--description", "torrent")
	require.NoError(t, r.err)
	require.Len(t, g.Mappings(), 1)
	assert.Equal(t, "9000", g.Mappings()[0]["NewInternalPort"])
	assert.Equal(t, "UDP", g.Mappings()[0]["NewProtocol"])

	r = run(t, "list", "--location", g.Location(), "-o", "json=compact")
	require.NoError(t, r.err)

	var report struct {
		Command  string `json:"command"`
		Gateway  struct{ RootURL string }
		Mappings []events.Mapping `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &report))
	assert.Equal(t, "list", report.Command)
	assert.Equal(t, g.Location(), report.Gateway.RootURL)
	require.Len(t, report.Mappings, 1)
	assert.Equal(t, uint16(51413), report.Mappings[0].ExternalPort)
	assert.Equal(t, "10.0.0.2", report.Mappings[0].InternalClient)
	assert.Equal(t, "torrent", report.Mappings[0].Description)

	r = run(t, "remove", "--location", g.Location(), "--proto", "udp", "--external", "51413")
	require.NoError(t, r.err)
	assert.Equal(t, "removed UDP 51413\n", r.stdout)
	assert.Empty(t, g.Mappings())

	// A second removal is not an error.
	r = run(t, "rm", "--location", g.Location(), "--proto", "udp", "--external", "51413")
	require.NoError(t, r.err)
}

func TestAddAny(t *testing.T) {
	g := igdtest.New(t, igdtest.WithActions(append([]string{"AddAnyPortMapping"}, igdtest.StandardActions...)...))

	r := run(t, "add-any", "--location", g.Location(), "--proto", "tcp", "--internal", "10.0.0.2:9000")
	require.NoError(t, r.err)
	assert.Equal(t, "9000\n", r.stdout)
	require.Len(t, g.RequestsFor("AddAnyPortMapping"), 1)
}

func TestAddPortInUse(t *testing.T) {
	g := igdtest.New(t)

	r := run(t, "add", "--location", g.Location(), "--external", "8080", "--internal", "10.0.0.2:80")
	require.NoError(t, r.err)

	r = run(t, "add", "--location", g.Location(), "--external", "8080", "--internal", "10.0.0.3:80", "-o", "json")
	require.Error(t, r.err)
	assert.Equal(t, events.ExitCodePortInUse, r.exitCode)
	assert.Contains(t, r.stdout, `"error"`)
}

func TestGetMissing(t *testing.T) {
	g := igdtest.New(t)

	r := run(t, "get", "--location", g.Location(), "--external", "8080")
	require.Error(t, r.err)
	assert.Equal(t, events.ExitCodeGenericFailure, r.exitCode)
	assert.Contains(t, r.stderr, "714")
}

func TestUnsupportedGateway(t *testing.T) {
	g := igdtest.New(t, igdtest.WithServiceType("urn:schemas-upnp-org:service:WANIPv6FirewallControl:1"))

	r := run(t, "external-ip", "--location", g.Location())
	require.Error(t, r.err)
	assert.Equal(t, events.ExitCodeUnsupportedGateway, r.exitCode)
}

func TestInvalidFlags(t *testing.T) {
	r := run(t, "external-ip", "--location", "http://192.0.2.1/rootDesc.xml", "--request-timeout", "0s")
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "request timeout must be positive")
	assert.Equal(t, events.ExitCodeGenericFailure, r.exitCode)

	r = run(t, "add", "--proto", "sctp", "--external", "80")
	require.Error(t, r.err)
	assert.Contains(t, r.stderr, "invalid protocol")
}

func TestQuiet(t *testing.T) {
	g := igdtest.New(t)

	r := run(t, "external-ip", "-q", "--location", g.Location())
	require.NoError(t, r.err)
	assert.Empty(t, r.stdout)
	assert.Empty(t, r.stderr)
}

func TestCobraCommand(t *testing.T) {
	cmd := CobraCommand()

	var names []string
	for _, sc := range cmd.Commands() {
		names = append(names, sc.Name())
	}
	assert.ElementsMatch(t, []string{"discover", "external-ip", "add", "add-any", "remove", "list", "get", "version"}, names)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("location"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("any-port-attempts"))
}
