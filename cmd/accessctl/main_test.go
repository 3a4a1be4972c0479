package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
)

const employeeFixture = `id: 7
role: Employee
status: Active
permissions:
  - module: attendance
    action: view
    resource: records
  - module: attendance
    action: teleport
    resource: records
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "principal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseFixture(t *testing.T) {
	rec, err := parseFixture([]byte(employeeFixture))
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "Employee", rec.Role)
	assert.Len(t, rec.Permissions, 2)

	_, err = parseFixture([]byte("id: 1\nstatus: Retired\n"))
	require.Error(t, err)
	_, err = parseFixture([]byte("id: [\n"))
	require.Error(t, err)
}

func TestRoutesCommand(t *testing.T) {
	out, _, err := execute(t, "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "PATTERN")
	assert.Contains(t, out, "/employees/{id}/edit")
	assert.NotContains(t, out, "overlap:")

	out, _, err = execute(t, "routes", "--json")
	require.NoError(t, err)
	var parsed routesOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Len(t, parsed.Routes, len(access.DefaultRequirements()))
	assert.Empty(t, parsed.Overlaps)
}

func TestCheckCommandDenied(t *testing.T) {
	fixture := writeFixture(t, employeeFixture)

	out, errOut, err := execute(t, "check", "--principal", fixture, "--json", "/roles")
	require.NoError(t, err)
	assert.Contains(t, errOut, "teleport")

	var parsed checkOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, access.OutcomeRedirectAccessDenied, parsed.Decision.Outcome)
	assert.Equal(t, "roles:view:roles", parsed.Required)
	require.NotNil(t, parsed.Redirect)
	assert.True(t, strings.HasPrefix(parsed.Redirect.Location, access.PathAttendance+"?"))
	require.NotNil(t, parsed.Denial)
	assert.Equal(t, "Access denied", parsed.Denial.Title)
	assert.Equal(t, "Denied", parsed.Trace[len(parsed.Trace)-1])
}

func TestCheckCommandAllowed(t *testing.T) {
	fixture := writeFixture(t, employeeFixture)

	out, _, err := execute(t, "check", "--principal", fixture, "/attendance/42")
	require.NoError(t, err)
	assert.Contains(t, out, "outcome:  Allow")
	assert.NotContains(t, out, "redirect:")
}

func TestCheckCommandValidatesInput(t *testing.T) {
	_, _, err := execute(t, "check", "/roles")
	require.Error(t, err)

	fixture := writeFixture(t, employeeFixture)
	_, _, err = execute(t, "check", "--principal", fixture, "roles")
	require.Error(t, err)

	_, _, err = execute(t, "check", "--principal", fixture, "--user", "3", "/roles")
	require.Error(t, err)
}

func TestLandingCommand(t *testing.T) {
	fixture := writeFixture(t, employeeFixture)

	out, _, err := execute(t, "landing", "--principal", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "landing: /attendance")
	assert.Contains(t, out, "Dashboard")
	assert.NotContains(t, out, "Payroll")
}

func TestInvalidateRequiresOneTarget(t *testing.T) {
	_, _, err := execute(t, "invalidate")
	require.Error(t, err)

	_, _, err = execute(t, "invalidate", "--all", "--user", "4")
	require.Error(t, err)

	_, _, err = execute(t, "invalidate", "--user", "-4")
	require.Error(t, err)
}
