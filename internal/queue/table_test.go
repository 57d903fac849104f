package queue_test

import (
	"strings"
	"testing"

	"dockq/internal/queue"
)

func TestDecodeTableAcceptsHeaderVariants(t *testing.T) {
	input := "\ufeffcmd,label,status\ntrue,\"a, b\",\nfalse,x,DONE\n"
	table, err := queue.DecodeTable(strings.NewReader(input), ',')
	if err != nil {
		t.Fatalf("DecodeTable returned error: %v", err)
	}
	if table.Columns[0] != "cmd" {
		t.Fatalf("expected BOM to be stripped, got %q", table.Columns[0])
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if table.Status(0) != queue.StatusPending {
		t.Fatalf("expected empty status to read as pending, got %q", table.Status(0))
	}
	if table.Status(1) != queue.StatusDone {
		t.Fatalf("expected status to be case-insensitive, got %q", table.Status(1))
	}
	item := table.Item(0)
	if got, _ := item.Value("label"); got != "a, b" {
		t.Fatalf("expected quoted field to survive, got %q", got)
	}
	if item.Key() != "cmd=true label=a, b" {
		t.Fatalf("unexpected key: %q", item.Key())
	}
}

func TestDecodeTableKeepsQuotesInsideValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare quotes", "cmd,status\nsh -c \"exit 0\",pending\n", `sh -c "exit 0"`},
		{"trailing quote", "cmd,status\necho 5\",pending\n", `echo 5"`},
		{"quoted with escapes", "cmd,status\n\"say \"\"hi\"\"\",pending\n", `say "hi"`},
		{"quote mid quoted value", "cmd,status\n\"a\"b\",pending\n", `a"b`},
		{"tab delimiter", "cmd\tstatus\nsh -c \"exit 0\"\tpending\n", `sh -c "exit 0"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delimiter := ','
			if strings.Contains(tt.input, "\t") {
				delimiter = '\t'
			}
			table, err := queue.DecodeTable(strings.NewReader(tt.input), delimiter)
			if err != nil {
				t.Fatalf("DecodeTable returned error: %v", err)
			}
			if got, _ := table.Item(0).Value("cmd"); got != tt.want {
				t.Fatalf("cmd = %q, want %q", got, tt.want)
			}
			if table.Status(0) != queue.StatusPending {
				t.Fatalf("status = %q, want pending", table.Status(0))
			}
		})
	}
}

func TestItemIdentityDistinguishesRowsWithEqualKeys(t *testing.T) {
	first := queue.Item{Fields: []queue.Field{{Name: "a", Value: "1 b=2"}, {Name: "b", Value: "3"}}}
	second := queue.Item{Fields: []queue.Field{{Name: "a", Value: "1"}, {Name: "b", Value: "2 b=3"}}}
	if first.Key() != second.Key() {
		t.Fatalf("expected equal display keys, got %q and %q", first.Key(), second.Key())
	}
	if first.Identity() == second.Identity() {
		t.Fatalf("expected distinct identities, both %q", first.Identity())
	}
	quoted := queue.Item{Fields: []queue.Field{{Name: "a", Value: `x";"b"="y`}}}
	split := queue.Item{Fields: []queue.Field{{Name: "a", Value: "x"}, {Name: "b", Value: "y"}}}
	if quoted.Identity() == split.Identity() {
		t.Fatalf("expected quoting to keep identities apart, both %q", quoted.Identity())
	}
}

func TestDecodeTableRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "header row missing"},
		{"no status column", "cmd,label\ntrue,x\n", "no \"status\" column"},
		{"status only", "status\npending\n", "no parameter columns"},
		{"repeated column", "cmd,cmd,status\na,b,pending\n", "repeated"},
		{"empty column", "cmd,,status\na,b,pending\n", "is empty"},
		{"short row", "cmd,status\ntrue\n", "row 1 has 1 fields"},
		{"long row", "cmd,status\ntrue,pending,extra\n", "row 1 has 3 fields"},
		{"unknown status", "cmd,status\ntrue,running\n", "unknown status"},
		{"unclosed quote", "cmd,status\n\"true,pending\n", "parse table"},
		{"unclosed quote after rows", "cmd,status\ntrue,pending\nfalse,\"pending\nx,done\n", "line 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := queue.DecodeTable(strings.NewReader(tt.input), ',')
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeTableRoundTripsCanonicalText(t *testing.T) {
	input := "REC_FILE\tINPUT_DIR\tstatus\nrec.pdbqt\tinputs/1\tdone\nrec.pdbqt\tinputs/2\tpending\n"
	table, err := queue.DecodeTable(strings.NewReader(input), '\t')
	if err != nil {
		t.Fatalf("DecodeTable returned error: %v", err)
	}
	out, err := queue.EncodeTable(table, '\t')
	if err != nil {
		t.Fatalf("EncodeTable returned error: %v", err)
	}
	if string(out) != input {
		t.Fatalf("round trip changed table:\n got %q\nwant %q", out, input)
	}
}

func TestTableStatusColumnMayBeAnywhere(t *testing.T) {
	table, err := queue.NewTable([]string{"status", "a", "b"}, []string{"pending", "1", "2"})
	if err != nil {
		t.Fatalf("NewTable returned error: %v", err)
	}
	if got := table.ParamColumns(); strings.Join(got, ",") != "a,b" {
		t.Fatalf("unexpected param columns: %v", got)
	}
	item := table.Item(0)
	if !table.Matches(0, item) {
		t.Fatal("expected row to match its own item")
	}
	item.Fields[1].Value = "3"
	if table.Matches(0, item) {
		t.Fatal("expected changed field to stop matching")
	}
	if table.Matches(0, queue.Item{Fields: item.Fields[:1]}) {
		t.Fatal("expected partial item to not match")
	}
}

func TestTableAppendDefaultsToPending(t *testing.T) {
	table, err := queue.NewTable([]string{"cmd", "status"})
	if err != nil {
		t.Fatalf("NewTable returned error: %v", err)
	}
	table.Append(map[string]string{"cmd": "true"})
	table.Append(map[string]string{"cmd": "false", "status": "failed"})
	if table.Status(0) != queue.StatusPending || table.Status(1) != queue.StatusFailed {
		t.Fatalf("unexpected statuses: %q %q", table.Status(0), table.Status(1))
	}
	clone := table.Clone()
	clone.SetStatus(0, queue.StatusDone)
	if table.Status(0) != queue.StatusPending {
		t.Fatal("expected clone to be detached")
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := [][2]queue.Status{
		{queue.StatusPending, queue.StatusInProgress},
		{queue.StatusInProgress, queue.StatusDone},
		{queue.StatusInProgress, queue.StatusFailed},
		{queue.StatusInProgress, queue.StatusPending},
	}
	for _, pair := range allowed {
		if !queue.CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}
	denied := [][2]queue.Status{
		{queue.StatusDone, queue.StatusPending},
		{queue.StatusFailed, queue.StatusInProgress},
		{queue.StatusPending, queue.StatusDone},
	}
	for _, pair := range denied {
		if queue.CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
	if !queue.StatusDone.IsTerminal() || queue.StatusInProgress.IsTerminal() {
		t.Fatal("unexpected terminal classification")
	}
}

func TestOutcomeStatusMapping(t *testing.T) {
	tests := []struct {
		kind queue.OutcomeKind
		want queue.Status
	}{
		{queue.OutcomeSuccess, queue.StatusDone},
		{queue.OutcomeFailed, queue.StatusFailed},
		{queue.OutcomeTimedOut, queue.StatusPending},
		{queue.OutcomeInterrupted, queue.StatusPending},
	}
	for _, tt := range tests {
		if got := (queue.Outcome{Kind: tt.kind}).Status(); got != tt.want {
			t.Fatalf("%s: got %q want %q", tt.kind, got, tt.want)
		}
	}
}
