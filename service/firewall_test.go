package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUfw keeps a rule list and prints it like `ufw status`.
type fakeUfw struct {
	mu     sync.Mutex
	active bool
	rules  []string
}

func (f *fakeUfw) handle(name string, args []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name != "ufw" {
		return nil, nil
	}
	switch {
	case len(args) == 1 && args[0] == "status":
		if !f.active {
			return []byte("Status: inactive\n"), nil
		}
		var b strings.Builder
		b.WriteString("Status: active\n\nTo                         Action      From\n--                         ------      ----\n")
		for _, r := range f.rules {
			fmt.Fprintf(&b, "%-26s ALLOW       Anywhere\n", r)
			fmt.Fprintf(&b, "%-26s ALLOW       Anywhere (v6)\n", r+" (v6)")
		}
		return []byte(b.String()), nil
	case len(args) == 2 && args[0] == "allow":
		f.rules = append(f.rules, args[1])
	case len(args) == 3 && args[0] == "delete":
		for i, r := range f.rules {
			if r == args[2] {
				f.rules = append(f.rules[:i], f.rules[i+1:]...)
				break
			}
		}
	}
	return nil, nil
}

// fakeTable is an in-memory INPUT chain.
type fakeTable struct {
	rules []string
}

func (t *fakeTable) Exists(table, chain string, rulespec ...string) (bool, error) {
	want := table + " " + chain + " " + strings.Join(rulespec, " ")
	for _, r := range t.rules {
		if r == want {
			return true, nil
		}
	}
	return false, nil
}

func (t *fakeTable) Insert(table, chain string, pos int, rulespec ...string) error {
	t.rules = append([]string{table + " " + chain + " " + strings.Join(rulespec, " ")}, t.rules...)
	return nil
}

func (t *fakeTable) DeleteIfExists(table, chain string, rulespec ...string) error {
	want := table + " " + chain + " " + strings.Join(rulespec, " ")
	for i, r := range t.rules {
		if r == want {
			t.rules = append(t.rules[:i], t.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

func withRuleTables(t *testing.T, fn func() ([]RuleTable, error)) {
	t.Helper()
	orig := newRuleTables
	newRuleTables = fn
	t.Cleanup(func() { newRuleTables = orig })
}

func TestUfwOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	u := &fakeUfw{active: true}
	r := &fakeRunner{handle: u.handle}
	fw := NewUfwFirewall(r)

	require.NoError(t, fw.Open(ctx, 8388))
	require.NoError(t, fw.Open(ctx, 8388))
	assert.Equal(t, []string{"8388/tcp", "8388/udp"}, u.rules)
	assert.Equal(t, 2, r.called("ufw allow"))

	require.NoError(t, fw.Close(ctx, 8388))
	require.NoError(t, fw.Close(ctx, 8388))
	assert.Empty(t, u.rules)
}

func TestUfwHasRuleDoesNotMatchPrefix(t *testing.T) {
	status := []byte("Status: active\n83880/tcp ALLOW Anywhere\n")
	assert.False(t, ufwHasRule(status, "8388/tcp"))
	assert.True(t, ufwHasRule(status, "83880/tcp"))
}

func TestIptablesOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	v4, v6 := &fakeTable{}, &fakeTable{}
	fw := NewIptablesFirewall(v4, v6)

	require.NoError(t, fw.Open(ctx, 443))
	require.NoError(t, fw.Open(ctx, 443))
	for _, tbl := range []*fakeTable{v4, v6} {
		assert.ElementsMatch(t, []string{
			"filter INPUT -p tcp --dport 443 -j ACCEPT",
			"filter INPUT -p udp --dport 443 -j ACCEPT",
		}, tbl.rules)
	}

	require.NoError(t, fw.Close(ctx, 443))
	assert.Empty(t, v4.rules)
	assert.Empty(t, v6.rules)
}

func TestDetectFirewallPrefersActiveUfw(t *testing.T) {
	withRuleTables(t, func() ([]RuleTable, error) { return []RuleTable{&fakeTable{}}, nil })
	u := &fakeUfw{active: true}
	r := &fakeRunner{handle: u.handle, paths: map[string]bool{"ufw": true}}

	assert.Equal(t, "ufw", DetectFirewall(context.Background(), r).Name())
}

func TestDetectFirewallFallsBackToIptables(t *testing.T) {
	withRuleTables(t, func() ([]RuleTable, error) { return []RuleTable{&fakeTable{}}, nil })

	inactive := &fakeRunner{handle: (&fakeUfw{}).handle, paths: map[string]bool{"ufw": true}}
	assert.Equal(t, "iptables", DetectFirewall(context.Background(), inactive).Name())

	noUfw := &fakeRunner{}
	assert.Equal(t, "iptables", DetectFirewall(context.Background(), noUfw).Name())
}

func TestDetectFirewallNone(t *testing.T) {
	withRuleTables(t, func() ([]RuleTable, error) { return nil, errors.New("iptables not found") })

	fw := DetectFirewall(context.Background(), &fakeRunner{})
	assert.Equal(t, "none", fw.Name())
	assert.NoError(t, fw.Open(context.Background(), 8388))
	assert.NoError(t, fw.Close(context.Background(), 8388))
}
