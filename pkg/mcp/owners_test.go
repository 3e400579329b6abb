package mcp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobOwners(t *testing.T) {
	o := NewJobOwners()

	_, ok := o.Owner("job-1")
	assert.False(t, ok)

	o.Claim("job-1", "session-old")
	o.Claim("job-1", "session-abc")
	o.Claim("job-2", "session-abc")
	o.Claim("job-3", "session-xyz")

	sid, ok := o.Owner("job-1")
	require.True(t, ok)
	assert.Equal(t, "session-abc", sid)

	assert.Empty(t, o.Release("session-old"), "job-1 moved away from its first session")
	assert.Equal(t, []string{"job-1", "job-2"}, o.Release("session-abc"))

	_, ok = o.Owner("job-1")
	assert.False(t, ok)
	_, ok = o.Owner("job-2")
	assert.False(t, ok)

	sid, ok = o.Owner("job-3")
	require.True(t, ok)
	assert.Equal(t, "session-xyz", sid)

	assert.Empty(t, o.Release("session-abc"))
}

func TestJobOwnersConcurrent(t *testing.T) {
	o := NewJobOwners()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sid := string(rune('a' + i))
			for j := range 50 {
				jid := sid + "-" + string(rune('0'+j%10))
				o.Claim(jid, sid)
				o.Owner(jid)
			}
			o.Release(sid)
		}()
	}
	wg.Wait()
	assert.Empty(t, o.byJob)
	assert.Empty(t, o.bySession)
}
