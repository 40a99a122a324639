package roster_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/averonhq/deskchat/internal/roster"
	"github.com/averonhq/deskchat/internal/wire"
)

func directory() []wire.Participant {
	return []wire.Participant{
		{EmployeeCode: "E1", FullName: "Ana Torres", Role: "Sales"},
		{EmployeeCode: "E2", FullName: "Ben Okafor", Role: "Support"},
		{EmployeeCode: "E3", FullName: "Carla Diaz", Role: "Sales"},
	}
}

func TestPickerFilterMatchesNameCodeAndRole(t *testing.T) {
	p := roster.NewPicker(directory())

	p.Filter("sales")
	visible := p.Visible()
	require.Len(t, visible, 2)
	require.Equal(t, "E1", visible[0].EmployeeCode)
	require.Equal(t, "E3", visible[1].EmployeeCode)

	p.Filter("  BEN ")
	visible = p.Visible()
	require.Len(t, visible, 1)
	require.Equal(t, "E2", visible[0].EmployeeCode)

	p.Filter("e3")
	require.Len(t, p.Visible(), 1)
}

func TestPickerSelectionSurvivesFilterChanges(t *testing.T) {
	p := roster.NewPicker(directory())

	p.Filter("ana")
	p.Toggle("E1")
	p.Filter("carla")
	p.Toggle("E3")
	p.Filter("")

	require.Equal(t, []string{"E1", "E3"}, p.Selected(), "selection keeps directory order")
	require.True(t, p.IsSelected("E1"))
	require.False(t, p.IsSelected("E2"))
}

func TestPickerToggleFlipsAndIgnoresUnknown(t *testing.T) {
	p := roster.NewPicker(directory())

	p.Toggle("E2")
	p.Toggle("E2")
	p.Toggle("E999")
	require.Empty(t, p.Selected())
}

func TestPickerSetEntriesDropsVanishedSelections(t *testing.T) {
	p := roster.NewPicker(directory())
	p.Toggle("E1")
	p.Toggle("E3")

	p.SetEntries(directory()[:2])
	require.Equal(t, []string{"E1"}, p.Selected())
}

func TestPickerClear(t *testing.T) {
	p := roster.NewPicker(directory())
	p.Toggle("E1")
	p.Filter("ana")

	p.Clear()
	require.Empty(t, p.Selected())
	require.Len(t, p.Visible(), 3)
}

type fakeAPI struct {
	roster  []wire.Participant
	renamed []string
	added   map[string][]string
	removed []string
	created []string
}

func (f *fakeAPI) ListRoster(context.Context) ([]wire.Participant, error) {
	return f.roster, nil
}

func (f *fakeAPI) RenameThread(_ context.Context, threadID, name string) error {
	f.renamed = append(f.renamed, threadID+"="+name)
	return nil
}

func (f *fakeAPI) AddParticipants(_ context.Context, threadID string, codes []string) error {
	if f.added == nil {
		f.added = make(map[string][]string)
	}
	f.added[threadID] = codes
	return nil
}

func (f *fakeAPI) RemoveParticipant(_ context.Context, threadID, code string) error {
	f.removed = append(f.removed, threadID+"/"+code)
	return nil
}

func (f *fakeAPI) CreateThread(_ context.Context, name string, codes []string) (wire.Thread, error) {
	f.created = append(f.created, name)
	return wire.Thread{ID: "t-new", Name: name, Type: wire.ThreadGroup}, nil
}

func TestDirectoryExcludesSelf(t *testing.T) {
	api := &fakeAPI{roster: directory()}
	svc := roster.NewService(api, "E2", zerolog.Nop())

	entries, err := svc.Directory(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		require.NotEqual(t, "E2", entry.EmployeeCode)
	}
}

func TestAddSkipsExistingMembersAndClearsPicker(t *testing.T) {
	api := &fakeAPI{}
	svc := roster.NewService(api, "E1", zerolog.Nop())

	p := roster.NewPicker(directory())
	p.Toggle("E2")
	p.Toggle("E3")

	thread := wire.Thread{ID: "t-1", Participants: []wire.Participant{{EmployeeCode: "E2"}}}
	require.NoError(t, svc.Add(context.Background(), thread, p))
	require.Equal(t, []string{"E3"}, api.added["t-1"])
	require.Empty(t, p.Selected())
}

func TestAddWithNothingNewIsSentinel(t *testing.T) {
	svc := roster.NewService(&fakeAPI{}, "E1", zerolog.Nop())

	p := roster.NewPicker(directory())
	p.Toggle("E2")
	thread := wire.Thread{ID: "t-1", Participants: []wire.Participant{{EmployeeCode: "E2"}}}

	require.ErrorIs(t, svc.Add(context.Background(), thread, p), roster.ErrNoSelection)
}

func TestRenameRejectsBlankName(t *testing.T) {
	api := &fakeAPI{}
	svc := roster.NewService(api, "E1", zerolog.Nop())

	require.Error(t, svc.Rename(context.Background(), "t-1", "   "))
	require.Empty(t, api.renamed)

	require.NoError(t, svc.Rename(context.Background(), "t-1", " Q3 Leads "))
	require.Equal(t, []string{"t-1=Q3 Leads"}, api.renamed)
}

func TestCreateGroupRequiresSelection(t *testing.T) {
	api := &fakeAPI{}
	svc := roster.NewService(api, "E1", zerolog.Nop())

	p := roster.NewPicker(directory())
	_, err := svc.CreateGroup(context.Background(), "New Group", p)
	require.ErrorIs(t, err, roster.ErrNoSelection)

	p.Toggle("E2")
	thread, err := svc.CreateGroup(context.Background(), "New Group", p)
	require.NoError(t, err)
	require.Equal(t, wire.ThreadGroup, thread.Type)
	require.Empty(t, p.Selected())
}
