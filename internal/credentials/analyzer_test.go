package credentials

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCompoundUsername(t *testing.T) {
	xml := `<Connections><Node Type="Connection" Name="Web1" Hostname="10.0.0.5" Protocol="SSH2" Username="alice@default@10.0.0.5:ssh:alice"/></Connections>`

	users, err := AnalyzeXML([]byte(xml))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, 1, users[0].Count)
	assert.Equal(t, []string{"Web1"}, users[0].ConnectionNames)
	assert.Equal(t, []string{"alice@default@10.0.0.5:ssh:alice"}, users[0].RawContexts)
}

func TestAnalyzeOrderingAndContexts(t *testing.T) {
	xml := `<Connections>
  <Node Name="Folder" Type="Container" Username="ignored">
    <Node Type="Connection" Name="a1" Hostname="a1" Username="carol" />
    <Node Type="Connection" Name="b1" Hostname="b1" Username="bob" />
    <Node Type="Connection" Name="b2" Hostname="b2" User="bob@corp.local" />
    <Node Type="Connection" Name="c2" Hostname="c2" Username="carol" />
  </Node>
  <Node Type="Connection" Hostname="d1" Username="dave" />
  <Node Type="Connection" Name="e1" Hostname="e1" />
</Connections>`

	users, err := AnalyzeXML([]byte(xml))
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	// carol and bob tie at 2; carol was seen first.
	assert.Equal(t, []string{"carol", "bob", "corp.local", "dave"}, names)
	assert.Equal(t, []string{"a1", "c2"}, users[0].ConnectionNames)
	assert.Equal(t, []string{"carol"}, users[0].RawContexts)
	assert.Equal(t, []string{"bob", "bob@corp.local"}, users[1].RawContexts)
	assert.Equal(t, []string{"d1"}, users[3].ConnectionNames)
}

func TestAnalyzeTruncatesToTopTen(t *testing.T) {
	var b strings.Builder
	b.WriteString("<Connections>")
	for i := 0; i < 15; i++ {
		for j := 0; j <= i; j++ {
			fmt.Fprintf(&b, `<Node Type="Connection" Name="n%d-%d" Hostname="h" Username="user%c" />`, i, j, 'a'+i)
		}
	}
	b.WriteString("</Connections>")

	users, err := AnalyzeXML([]byte(b.String()))
	require.NoError(t, err)
	require.Len(t, users, MaxTopUsers)
	assert.Equal(t, "usero", users[0].Username)
	assert.Equal(t, 15, users[0].Count)
	for i := 1; i < len(users); i++ {
		assert.GreaterOrEqual(t, users[i-1].Count, users[i].Count)
	}
}

func TestAnalyzeMalformed(t *testing.T) {
	_, err := AnalyzeXML([]byte("<Connections><Node>"))
	assert.Error(t, err)
	assert.Nil(t, Analyze(nil))
}
