package addon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstallTaskValidate(t *testing.T) {
	cases := []struct {
		name    string
		task    InstallTask
		wantErr bool
	}{
		{
			name: "fresh with no conflict is valid",
			task: InstallTask{Strategy: StrategyFresh, Conflict: ConflictNone},
		},
		{
			name:    "fresh with conflict is invalid",
			task:    InstallTask{Strategy: StrategyFresh, Conflict: ConflictExists},
			wantErr: true,
		},
		{
			name:    "no conflict but non-fresh strategy is invalid",
			task:    InstallTask{Strategy: StrategyClean, Conflict: ConflictNone},
			wantErr: true,
		},
		{
			name: "clean with conflict is valid",
			task: InstallTask{Strategy: StrategyClean, Conflict: ConflictExists},
		},
		{
			name: "navdata backup on navdata kind is valid",
			task: InstallTask{
				Strategy: StrategyClean, Conflict: ConflictExists,
				Kind: Navdata, BackupPolicy: BackupPolicy{Navdata: true},
			},
		},
		{
			name: "navdata backup on non-navdata kind is invalid",
			task: InstallTask{
				Strategy: StrategyClean, Conflict: ConflictExists,
				Kind: Aircraft, BackupPolicy: BackupPolicy{Navdata: true},
			},
			wantErr: true,
		},
		{
			name: "locked conflict enabled is invalid",
			task: InstallTask{
				Strategy: StrategyClean, Conflict: ConflictExistsLocked, Enabled: true,
			},
			wantErr: true,
		},
		{
			name: "locked conflict disabled is valid",
			task: InstallTask{
				Strategy: StrategyClean, Conflict: ConflictExistsLocked, Enabled: false,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.task.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSourceRootIsArchive(t *testing.T) {
	assert.False(t, SourceRoot{Dir: "/x"}.IsArchive())
}
