package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

func TestBuildLayout_RenderOrder(t *testing.T) {
	f := &model.Form{
		TicketType: model.TicketSupport,
		Version:    3,
		Sections: []model.FormSection{
			{ID: "late", Title: "Late", Order: 1},
			{ID: "early", Title: "Early", Order: 0},
			{ID: "hidden", Title: "Hidden", Order: 2, HideByDefault: true},
		},
		Fields: []model.FormField{
			{ID: "u1", Order: 1},
			{ID: "u0", Order: 0},
			{ID: "l0", Order: 0, SectionID: "late"},
			{ID: "e1", Order: 1, SectionID: "early"},
			{ID: "e0", Order: 0, SectionID: "early"},
			{ID: "h0", Order: 0, SectionID: "hidden"},
		},
	}

	l := BuildLayout(f, nil)

	assert.Equal(t, 3, l.Version)
	assert.Equal(t, []string{"u0", "u1"}, ids(l.Fields))
	require.Len(t, l.Sections, 2)
	assert.Equal(t, "early", l.Sections[0].ID)
	assert.Equal(t, []string{"e0", "e1"}, ids(l.Sections[0].Fields))
	assert.Equal(t, "late", l.Sections[1].ID)
	assert.Equal(t, []string{"l0"}, ids(l.Sections[1].Fields))
	assert.Equal(t, []string{"early", "late"}, l.VisibleSections)
	assert.Equal(t, []string{"u0", "u1", "e0", "e1", "l0"}, ids(l.RenderedFields()))
}

func TestBuildLayout_FollowsAnswers(t *testing.T) {
	f := bugForm()

	l := BuildLayout(f, map[string]string{"type": "feature"})
	assert.Equal(t, []string{"type", "summary"}, ids(l.RenderedFields()))

	l = BuildLayout(f, map[string]string{"type": "bug"})
	assert.Equal(t, []string{"type", "summary", "steps"}, ids(l.RenderedFields()))
}

func TestBuildLayout_EmptyForm(t *testing.T) {
	l := BuildLayout(&model.Form{TicketType: "empty"}, nil)
	assert.NotNil(t, l.Fields)
	assert.NotNil(t, l.Sections)
	assert.Empty(t, l.RenderedFields())
}
