package builder

import (
	"context"
	"testing"

	"card-studio/internal/card/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuiltEditor(t *testing.T, profile models.CardProfile) *Editor {
	t.Helper()
	e := NewEditor(newTestBuilder(t, newFakeSource()))
	require.NoError(t, e.Rebuild(context.Background(), profile))
	return e
}

func roleTop(s *models.Scene, role models.Role) float64 {
	return s.ByRole(role).Bounds().Y
}

func TestEditor_ReflowOnEdit(t *testing.T) {
	profile := sampleProfile()
	profile.UserInfo.Name = "Bat"
	e := newBuiltEditor(t, profile)

	before, _ := e.Snapshot()
	name := before.ByRole(models.RoleName)
	nameH := name.Height
	profTop := roleTop(before, models.RoleProfession)
	phoneTop := roleTop(before, models.RolePhone)
	emailTop := roleTop(before, models.RoleEmail)

	_, err := e.EditText(name.ID, "Bat\nErdene")
	require.NoError(t, err)

	after, got := e.Snapshot()
	delta := after.ByRole(models.RoleName).Height - nameH
	require.Greater(t, delta, 0.0)

	assert.InDelta(t, profTop+delta, roleTop(after, models.RoleProfession), 1e-9)
	assert.InDelta(t, emailTop-phoneTop, roleTop(after, models.RoleEmail)-roleTop(after, models.RolePhone), 1e-9)

	assert.Equal(t, "Bat\nErdene", got.UserInfo.Name)
	assert.Contains(t, after.ByRole(models.RoleSaveButton).VCard, "FN:Bat\\nErdene")
}

func TestEditor_EditPhoneUpdatesMetadata(t *testing.T) {
	e := newBuiltEditor(t, sampleProfile())
	s, _ := e.Snapshot()
	phone := s.ByRole(models.RolePhone)

	_, err := e.EditText(phone.ID, "88008800")
	require.NoError(t, err)

	after, profile := e.Snapshot()
	assert.Equal(t, "88008800", after.ByRole(models.RolePhone).Phone)
	assert.Equal(t, "88008800", profile.UserInfo.Phone)
	assert.Contains(t, after.ByRole(models.RoleSaveButton).VCard, "TEL:88008800")
}

func TestEditor_EditTextErrors(t *testing.T) {
	e := newBuiltEditor(t, sampleProfile())
	s, _ := e.Snapshot()

	_, err := e.EditText("missing", "x")
	assert.ErrorIs(t, err, ErrUnknownObject)

	_, err = e.EditText(s.ByRole(models.RoleHeader).ID, "x")
	assert.ErrorIs(t, err, ErrNotText)
}

func TestEditor_PendingReflow(t *testing.T) {
	e := newBuiltEditor(t, sampleProfile())
	s, _ := e.Snapshot()
	nameID := s.ByRole(models.RoleName).ID

	pending := e.ScheduleReflow(nameID)
	_, err := pending.Apply()
	require.NoError(t, err)

	stale := e.ScheduleReflow(nameID)
	require.NoError(t, e.Rebuild(context.Background(), sampleProfile()))
	before, _ := e.Snapshot()

	_, err = stale.Apply()
	assert.ErrorIs(t, err, ErrSuperseded)

	after, _ := e.Snapshot()
	assert.Equal(t, before, after)
}

func TestEditor_RebuildSupersededByNewer(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.gates[PhoneIconURL] = gate
	e := NewEditor(newTestBuilder(t, src))

	slow := sampleProfile()
	slowErr := make(chan error, 1)
	go func() { slowErr <- e.Rebuild(context.Background(), slow) }()

	for ref := range src.started {
		if ref == PhoneIconURL {
			break
		}
	}

	fast := models.CardProfile{UserInfo: models.UserInfo{Name: "Fast"}}
	require.NoError(t, e.Rebuild(context.Background(), fast))

	close(gate)
	assert.ErrorIs(t, <-slowErr, ErrSuperseded)

	s, profile := e.Snapshot()
	assert.Equal(t, "FAST", s.ByRole(models.RoleName).Text)
	assert.Equal(t, "Fast", profile.UserInfo.Name)
}

func TestEditor_SetBackground(t *testing.T) {
	e := newBuiltEditor(t, sampleProfile())

	require.NoError(t, e.SetBackground("#112233"))
	s, profile := e.Snapshot()
	assert.True(t, s.Objects[0].IsBackground)
	assert.Equal(t, "#112233", s.Objects[0].Fill)
	assert.Len(t, s.AllByRole(models.RoleBackground), 1)
	assert.Equal(t, "#112233", s.ByRole(models.RoleHeader).Fill)
	assert.Equal(t, "#112233", s.ByRole(models.RoleSaveButton).Fill)
	assert.Equal(t, "#112233", profile.BackgroundColor)

	assert.Error(t, e.SetBackground("blue"))
	assert.Error(t, e.SetBackground(""))
}

func TestEditor_Photo(t *testing.T) {
	e := newBuiltEditor(t, sampleProfile())

	require.NoError(t, e.SetPhoto(context.Background(), pngDataURI(t, 10, 10)))
	s, profile := e.Snapshot()
	assert.NotNil(t, s.ByRole(models.RolePhoto))
	assert.NotEmpty(t, profile.ProfileImage)

	assert.True(t, e.RemovePhoto())
	s, profile = e.Snapshot()
	assert.Nil(t, s.ByRole(models.RolePhoto))
	assert.Empty(t, profile.ProfileImage)
}
