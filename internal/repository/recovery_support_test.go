package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
)

func TestSameUser(t *testing.T) {
	user := models.User{UserName: "ölaf", UserStoreDomain: "primary", TenantDomain: "carbon.super"}

	tests := []struct {
		name          string
		storedName    string
		storedDomain  string
		caseSensitive bool
		want          bool
	}{
		{"ExactSensitive", "ölaf", "PRIMARY", true, true},
		{"CaseDiffersSensitive", "Ölaf", "PRIMARY", true, false},
		{"NonASCIIInsensitive", "Ölaf", "PRIMARY", false, true},
		{"OtherUserInsensitive", "olaf", "PRIMARY", false, false},
		{"OtherDomainInsensitive", "Ölaf", "LDAP", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SameUser(tc.storedName, tc.storedDomain, user, tc.caseSensitive))
		})
	}
}

func TestFoldCase(t *testing.T) {
	assert.Equal(t, FoldCase("ÖLAF"), FoldCase("ölaf"))
	assert.Equal(t, FoldCase("Σίσυφος"), FoldCase("ΣΊΣΥΦΟΣ"))
	assert.NotEqual(t, FoldCase("olaf"), FoldCase("ölaf"))
}

func TestCreationClock_StrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := NewCreationClock(func() time.Time { return fixed })

	first := clock.Next()
	second := clock.Next()
	assert.True(t, first.Equal(fixed))
	assert.Equal(t, time.Microsecond, second.Sub(first))
}
