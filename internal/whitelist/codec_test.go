package whitelist

import (
	"errors"
	"strings"
	"testing"

	"github.com/milsim-hq/rosterd/internal/roles"
)

const sampleFile = `/*
	7th Company server whitelist.
	rosterd rewrites only the bracket bodies; everything else is ours.
*/
private _role = _this select 0;
private _return = [];

if (_role == "S3") then {
	_return = [
		"76561198000000001",
		"76561198000000002"
	];
};

// CAS pilots. Single quotes on purpose, legacy block.
if (_role == 'CAS') then {
	_return = [
		"76561198000000003"
	];
};

if (_role == "ADMIN") then {
	_return = [];
};

if (_role == "ALL") then {
	_return = [
		"76561198000000001",
		"76561198000000002",
		"76561198000000003",
		"765611980000000044"
	];
};

_return
`

func testRegistry(t *testing.T) *roles.Registry {
	t.Helper()
	reg, err := roles.NewRegistry(roles.Defaults())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestParseExtractsRoleLists(t *testing.T) {
	codec := NewCodec(testRegistry(t))
	doc := codec.Parse(sampleFile)

	s3 := doc.IDs("S3")
	if len(s3) != 2 || s3[0] != "76561198000000001" || s3[1] != "76561198000000002" {
		t.Fatalf("unexpected S3 list: %v", s3)
	}
	cas := doc.IDs("CAS")
	if len(cas) != 1 || cas[0] != "76561198000000003" {
		t.Fatalf("single-quoted guard not parsed: %v", cas)
	}
	if got := doc.IDs("ADMIN"); len(got) != 0 {
		t.Fatalf("expected empty ADMIN list, got %v", got)
	}
	if got := doc.IDs("MODERATOR"); len(got) != 0 {
		t.Fatalf("role without a block should be empty, got %v", got)
	}
	// Legacy 18-digit values survive parsing.
	all := doc.IDs("ALL")
	if len(all) != 4 || all[3] != "765611980000000044" {
		t.Fatalf("unexpected ALL list: %v", all)
	}
}

func TestParseFirstGuardWins(t *testing.T) {
	text := sampleFile + `
if (_role == "ADMIN") then {
	_return = [
		"76561198999999999"
	];
};
`
	codec := NewCodec(testRegistry(t))
	if got := codec.Parse(text).IDs("ADMIN"); len(got) != 0 {
		t.Fatalf("expected first (empty) ADMIN block to win, got %v", got)
	}
}

func TestParseIsLenient(t *testing.T) {
	codec := NewCodec(testRegistry(t))
	for _, text := range []string{
		"",
		"not a script at all",
		`if (_role == "S3") then { broken`,
		`if (_role == "S3") then { _return = [ "abc", "12x4", steamID ]; };`,
	} {
		doc := codec.Parse(text)
		for _, code := range doc.Codes() {
			if got := doc.IDs(code); len(got) != 0 {
				t.Fatalf("text %q: expected empty %s, got %v", text, code, got)
			}
		}
	}
}

func TestParseDropsNonDigitTokensAndDuplicates(t *testing.T) {
	text := `if (_role == "S3") then {
	_return = [
		"76561198000000001",
		"not-an-id",
		"76561198000000001",
		"76561198000000002"
	];
};`
	codec := NewCodec(testRegistry(t))
	got := codec.Parse(text).IDs("S3")
	if len(got) != 2 || got[0] != "76561198000000001" || got[1] != "76561198000000002" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestParseSkipsBalancedCommentBrackets(t *testing.T) {
	text := `if (_role == "S3") then {
	_return = [
		// reserve slots [do not touch]
		"76561198000000001"
	];
};`
	codec := NewCodec(testRegistry(t))
	got := codec.Parse(text).IDs("S3")
	if len(got) != 1 || got[0] != "76561198000000001" {
		t.Fatalf("unexpected list: %v", got)
	}
}

func TestApostropheInCommentDoesNotBreakScanning(t *testing.T) {
	text := `if (_role == "S3") then {
	// don't touch this list by hand
	_return = [
		"76561198000000001"
	];
};
`
	codec := NewCodec(testRegistry(t))

	got := codec.Parse(text).IDs("S3")
	if len(got) != 1 || got[0] != "76561198000000001" {
		t.Fatalf("unexpected list: %v", got)
	}

	out, err := codec.Replace(text, "S3", []string{"76561198000000099"})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !strings.Contains(out, "// don't touch this list by hand") {
		t.Fatalf("comment not preserved:\n%s", out)
	}
	if got := codec.Parse(out).IDs("S3"); len(got) != 1 || got[0] != "76561198000000099" {
		t.Fatalf("unexpected list after replace: %v", got)
	}
}

func TestReplaceRoundTrip(t *testing.T) {
	codec := NewCodec(testRegistry(t))
	lists := [][]string{
		{"76561198000000099"},
		{"76561198000000001", "76561198000000042", "76561198000000099"},
		nil,
	}
	for _, want := range lists {
		out, err := codec.Replace(sampleFile, "ADMIN", want)
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
		got := codec.Parse(out).IDs("ADMIN")
		if len(got) != len(want) {
			t.Fatalf("round trip length mismatch: want %v got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("round trip mismatch at %d: want %v got %v", i, want, got)
			}
		}
	}
}

func TestReplaceIsSurgical(t *testing.T) {
	codec := NewCodec(testRegistry(t))
	start, end, ok := findListSpan(sampleFile, "ADMIN")
	if !ok {
		t.Fatal("fixture must contain an ADMIN block")
	}
	out, err := codec.Replace(sampleFile, "ADMIN", []string{"76561198000000099"})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if out[:start] != sampleFile[:start] {
		t.Fatal("bytes before the target list changed")
	}
	if !strings.HasSuffix(out, sampleFile[end:]) {
		t.Fatal("bytes after the target list changed")
	}
}

func TestReplaceEmptyListKeepsValidBracketBody(t *testing.T) {
	codec := NewCodec(testRegistry(t))
	out, err := codec.Replace(sampleFile, "CAS", nil)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !strings.Contains(out, "if (_role == 'CAS') then {\n\t_return = [];") {
		t.Fatalf("expected collapsed empty brackets, got:\n%s", out)
	}
}

func TestReplaceLowerCaseRoleResolves(t *testing.T) {
	codec := NewCodec(testRegistry(t))
	out, err := codec.Replace(sampleFile, "admin", []string{"76561198000000099"})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := codec.Parse(out).IDs("ADMIN"); len(got) != 1 {
		t.Fatalf("unexpected ADMIN list: %v", got)
	}
}

func TestReplaceMissingBlock(t *testing.T) {
	codec := NewCodec(testRegistry(t))
	_, err := codec.Replace(sampleFile, "MODERATOR", []string{"76561198000000001"})
	if !errors.Is(err, ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
}
