package mremote

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

const nestedExport = `<?xml version="1.0" encoding="utf-8"?>
<mrng:Connections xmlns:mrng="http://mremoteng.org" Name="Connections" ConfVersion="2.6">
  <Node Name="Production" Type="Container" Hostname="">
    <Node Name="Web1" Type="Connection" Hostname="10.0.0.5" Protocol="SSH2" Username="alice" />
    <Node Name="DC" Type="Connection" Hostname="dc.corp" Protocol="RDP" Port="3390" Username="CORP\admin" Domain="CORP" />
    <Node Name="Databases" Type="Container">
      <Node Name="pg1" Type="Connection" Hostname="pg1.corp" Protocol="SSH2" />
    </Node>
  </Node>
  <Node Name="Lab VNC" Type="Connection" Hostname="lab" Protocol="VNC" />
</mrng:Connections>`

const flatExport = `<?xml version="1.0" encoding="utf-8"?>
<Connections>
  <Connection Name="Production" Type="Container">
    <Connection Name="Web1" Type="Connection" Hostname="10.0.0.5" Protocol="SSH2" Username="alice" />
    <Connection Name="DC" Type="Connection" Hostname="dc.corp" Protocol="RDP" Port="3390" Username="CORP\admin" Domain="CORP" />
    <Connection Name="Databases" Type="Container">
      <Connection Name="pg1" Type="Connection" Hostname="pg1.corp" Protocol="SSH2" />
    </Connection>
  </Connection>
  <Connection Name="Lab VNC" Type="Connection" Hostname="lab" Protocol="VNC" />
</Connections>`

func TestExtractNestedExport(t *testing.T) {
	tree, err := Extract([]byte(nestedExport))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(tree.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree.Roots))
	}
	prod := tree.Roots[0]
	if prod.Kind != KindFolder || prod.Name != "Production" {
		t.Fatalf("expected Production folder, got %+v", prod)
	}
	if len(prod.Children) != 3 {
		t.Fatalf("expected 3 children in Production, got %d", len(prod.Children))
	}
	dc := prod.Children[1].Connection
	if dc == nil || dc.Port != 3390 || dc.Domain != "CORP" || dc.Protocol != "RDP" {
		t.Fatalf("unexpected DC connection: %+v", dc)
	}
	if got := tree.ConnectionCount(); got != 4 {
		t.Fatalf("expected 4 connections, got %d", got)
	}
	if got := tree.FolderCount(); got != 2 {
		t.Fatalf("expected 2 folders, got %d", got)
	}
}

func TestExtractFlatDialectMatchesNested(t *testing.T) {
	nested, err := Extract([]byte(nestedExport))
	if err != nil {
		t.Fatalf("nested: %v", err)
	}
	flat, err := Extract([]byte(flatExport))
	if err != nil {
		t.Fatalf("flat: %v", err)
	}

	var shape func(nodes []*Node) string
	shape = func(nodes []*Node) string {
		s := ""
		for _, n := range nodes {
			s += n.Kind.String() + ":" + n.Name + "("
			if n.Connection != nil {
				s += n.Connection.Hostname
			}
			s += shape(n.Children) + ")"
		}
		return s
	}
	if a, b := shape(nested.Roots), shape(flat.Roots); a != b {
		t.Fatalf("dialects produced different trees:\nnested: %s\nflat:   %s", a, b)
	}
}

func TestExtractMalformedXML(t *testing.T) {
	inputs := []string{
		``,
		`<Connections><Node Name="x" Hostname="h"></Connections>`,
		`<Connections><Node Name="x" Hostname="h"/>`,
		`not xml at all`,
	}
	for _, in := range inputs {
		_, err := Extract([]byte(in))
		if err == nil {
			t.Fatalf("expected error for %q", in)
		}
		if !errors.Is(err, ErrMalformedXML) {
			t.Fatalf("expected ErrMalformedXML for %q, got %v", in, err)
		}
		var mErr *MalformedXMLError
		if !errors.As(err, &mErr) {
			t.Fatalf("expected *MalformedXMLError for %q, got %T", in, err)
		}
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	_, err := Extract([]byte(`<Servers><Server Name="a" Host="b"/></Servers>`))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractConnectionWinsOverChildren(t *testing.T) {
	xml := `<Connections>
  <Node Name="Jump" Hostname="jump.corp" Protocol="SSH2">
    <Node Name="Behind" Hostname="10.1.1.1" Protocol="SSH2"/>
  </Node>
</Connections>`
	tree, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(tree.Roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(tree.Roots))
	}
	if tree.Roots[0].Kind != KindConnection {
		t.Fatalf("expected node with host attribute and children to be a connection")
	}
}

func TestExtractContainerWithoutTypeOrChildrenIsFolderOnlyWhenTyped(t *testing.T) {
	xml := `<Connections>
  <Node Name="Empty" Type="Container"/>
  <Node Name="Nothing"/>
</Connections>`
	tree, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(tree.Roots) != 1 || tree.Roots[0].Name != "Empty" || tree.Roots[0].Kind != KindFolder {
		t.Fatalf("expected only the typed empty container, got %+v", tree.Roots)
	}
}

func TestExtractAttributeFallbackOrder(t *testing.T) {
	xml := `<Connections>
  <Node Name="a" Type="Connection" Host="from-host" Server="from-server"/>
  <Node Name="b" Type="Connection" Hostname="" Server="from-server"/>
  <Node Name="c" Type="Connection">
    <Hostname>from-child</Hostname>
    <User>carol</User>
  </Node>
  <Node Name="d" Type="Connection" Hostname="first" Host="second"/>
</Connections>`
	tree, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	conns := tree.Connections()
	want := []string{"from-host", "from-server", "from-child", "first"}
	if len(conns) != len(want) {
		t.Fatalf("expected %d connections, got %d", len(want), len(conns))
	}
	for i, w := range want {
		if conns[i].Hostname != w {
			t.Fatalf("connection %d: expected hostname %q, got %q", i, w, conns[i].Hostname)
		}
	}
	if conns[2].Username != "carol" {
		t.Fatalf("expected child-element username fallback, got %q", conns[2].Username)
	}
}

// ParentId links are not resolved: such nodes stay independent roots.
func TestExtractParentIDNodesStayIndependentRoots(t *testing.T) {
	xml := `<Connections>
  <Node Id="f1" Name="Folder" Type="Container"/>
  <Node Id="c1" ParentId="f1" Name="Child" Type="Connection" Hostname="h1"/>
  <Node Id="c2" Name="Top" Type="Connection" Hostname="h2"/>
</Connections>`
	tree, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(tree.Roots) != 3 {
		t.Fatalf("expected 3 independent roots, got %d", len(tree.Roots))
	}
	if tree.DetachedRoots != 1 {
		t.Fatalf("expected 1 detached root, got %d", tree.DetachedRoots)
	}
	if len(tree.Roots[0].Children) != 0 {
		t.Fatalf("expected folder to stay empty, got %d children", len(tree.Roots[0].Children))
	}
	if tree.Roots[1].Connection.ParentID != "f1" {
		t.Fatalf("expected ParentID to be preserved")
	}
}

func TestIsRoot(t *testing.T) {
	doc, err := ParseDocument([]byte(`<Connections><Node Name="a" Hostname="h"><Node Name="b" Hostname="h2"/></Node><Node Name="c" Parent="x" Hostname="h3"/></Connections>`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	els := doc.NodeElements()
	if len(els) != 3 {
		t.Fatalf("expected 3 node elements, got %d", len(els))
	}
	if !IsRoot(els[0]) || IsRoot(els[1]) || IsRoot(els[2]) {
		t.Fatalf("unexpected root classification: %v %v %v", IsRoot(els[0]), IsRoot(els[1]), IsRoot(els[2]))
	}
}

func TestExtractConnectionLeafCountMatchesSource(t *testing.T) {
	xml := `<Connections>
  <Node Name="A" Type="Container">
    <Node Name="A1" Type="Connection" Hostname="a1"/>
    <Node Name="A2" Type="Connection"/>
    <Node Name="B" Type="Container">
      <Node Name="B1" Type="Connection" Hostname="b1"/>
    </Node>
  </Node>
  <Node Name="C1" Type="Connection" Hostname="c1"/>
</Connections>`
	tree, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	qualifying := 0
	for _, el := range tree.Document.NodeElements() {
		if el.IsConnectionLike() {
			qualifying++
		}
	}
	if tree.ConnectionCount() != qualifying {
		t.Fatalf("expected %d connection leaves, got %d", qualifying, tree.ConnectionCount())
	}
	if conns := tree.Connections(); conns[1].Name != "A2" || conns[1].Hostname != "" {
		t.Fatalf("expected typed connection without host to be kept, got %+v", conns[1])
	}
}

func TestExtractPortParsing(t *testing.T) {
	xml := `<Connections>
  <Node Name="a" Hostname="h" Port="2222"/>
  <Node Name="b" Hostname="h" Port="abc"/>
  <Node Name="c" Hostname="h" Port="70000"/>
  <Node Hostname="nameless"/>
</Connections>`
	tree, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	conns := tree.Connections()
	if conns[0].Port != 2222 || conns[1].Port != 0 || conns[2].Port != 0 {
		t.Fatalf("unexpected ports: %d %d %d", conns[0].Port, conns[1].Port, conns[2].Port)
	}
	if conns[3].Name != "nameless" {
		t.Fatalf("expected hostname as fallback name, got %q", conns[3].Name)
	}
}

func TestParseDocumentCharset(t *testing.T) {
	xml := "<?xml version=\"1.0\" encoding=\"windows-1252\"?><Connections><Node Name=\"Caf\xe9\" Hostname=\"h\"/></Connections>"
	tree, err := Extract([]byte(xml))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got := tree.Roots[0].Name; got != "Café" {
		t.Fatalf("expected decoded name, got %q", got)
	}
}

func TestParseDocumentUTF16WithBOM(t *testing.T) {
	src := `<?xml version="1.0" encoding="utf-16"?><Connections><Node Name="Café" Hostname="h" Protocol="SSH2"/></Connections>`
	for _, endian := range []unicode.Endianness{unicode.LittleEndian, unicode.BigEndian} {
		raw, err := unicode.UTF16(endian, unicode.UseBOM).NewEncoder().Bytes([]byte(src))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		tree, err := Extract(raw)
		if err != nil {
			t.Fatalf("Extract returned error: %v", err)
		}
		if got := tree.Roots[0].Name; got != "Café" {
			t.Fatalf("expected decoded name, got %q", got)
		}
	}
}

func TestParseDocumentUTF8WithBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, `<Connections><Node Name="n" Hostname="h"/></Connections>`...)
	tree, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(tree.Roots) != 1 {
		t.Fatalf("expected one root, got %d", len(tree.Roots))
	}
}
