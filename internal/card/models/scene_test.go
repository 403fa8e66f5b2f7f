package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScene_SingleBackgroundAtZero(t *testing.T) {
	s := NewScene("#49c088")
	s.Add(NewRect(Base{Role: RoleCardBase}, 250, 600, 0))
	s.Add(NewTextbox(Base{Role: RoleName}, "Бат", TextStyle{FontSize: 18, Width: 200}))

	bg := s.SetBackgroundColor("#000000")
	require.Same(t, bg, s.Objects[0])
	assert.True(t, bg.IsBackground)
	assert.True(t, bg.ExcludeFromExport)

	again := s.SetBackgroundColor("#ffffff")
	assert.Same(t, bg, again)
	assert.Equal(t, "#ffffff", s.Objects[0].Fill)

	other := NewRect(Base{IsBackground: true, Fill: "#123456"}, 10, 10, 0)
	s.Add(other)

	count := 0
	for _, p := range s.Objects {
		if p.IsBackground {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Same(t, other, s.Objects[0])
	assert.Len(t, s.Objects, 3)
}

func TestScene_ZOrder(t *testing.T) {
	s := NewScene("#fff")
	s.SetBackgroundColor("#fff")
	a := NewCircle(Base{}, 5)
	b := NewCircle(Base{}, 5)
	s.Add(a, b)

	s.SendToBack(b.ID)
	assert.True(t, s.Objects[0].IsBackground)
	assert.Same(t, b, s.Objects[1])

	s.BringToFront(b.ID)
	assert.Same(t, b, s.Objects[len(s.Objects)-1])

	s.Insert(0, NewCircle(Base{}, 1))
	assert.True(t, s.Objects[0].IsBackground)

	assert.True(t, s.Remove(a.ID))
	assert.False(t, s.Remove(a.ID))
	assert.Nil(t, s.Find(a.ID))
}

func TestPrimitive_MetadataOmitted(t *testing.T) {
	p := NewRect(Base{ID: "r1"}, 10, 10, 0)
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"url", "phone", "email", "address", "website", "vcard"} {
		assert.NotContains(t, raw, key)
	}
}

func TestPrimitive_MetadataRoundTrip(t *testing.T) {
	p := NewRect(Base{ID: "btn"}, 160, 40, 20)
	require.NoError(t, p.Attach("vcard", "BEGIN:VCARD\r\nEND:VCARD"))
	require.NoError(t, p.Attach("url", "https://example.mn"))
	assert.Error(t, p.Attach("fax", "1"))

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var back Primitive
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p.Meta(), back.Meta())
	assert.Equal(t, KindRect, back.Type)
}

func TestKind_CaseInsensitive(t *testing.T) {
	var p Primitive
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Textbox","text":"x"}`), &p))
	assert.Equal(t, KindTextbox, p.Type)
	assert.True(t, p.Type.IsText())
}

func TestPrimitive_Bounds(t *testing.T) {
	c := NewCircle(Base{Left: 125, Top: 100, OriginX: OriginCenter, OriginY: OriginCenter}, 50)
	assert.Equal(t, Rect{X: 75, Y: 50, Width: 100, Height: 100}, c.Bounds())
	assert.True(t, c.Contains(Point{X: 125, Y: 100}))
	assert.False(t, c.Contains(Point{X: 76, Y: 51}))

	img := NewImage(Base{Left: 10, Top: 20, ScaleX: 0.5, ScaleY: 0.5}, "x", 100, 40, nil)
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 50, Height: 20}, img.Bounds())

	line := NewLine(Base{StrokeWidth: 2}, 30, 100, 220, 100)
	assert.Equal(t, Rect{X: 29, Y: 99, Width: 192, Height: 2}, line.Bounds())

	line.MoveTop(199)
	assert.Equal(t, 200.0, line.Y1)
	assert.Equal(t, 200.0, line.Y2)
}

func TestPrimitive_MoveTopMovesClip(t *testing.T) {
	photo := NewImage(Base{Left: 125, Top: 100, OriginX: OriginCenter, OriginY: OriginCenter}, "x", 100, 100,
		&ClipShape{Left: 125, Top: 100, Radius: 50})
	photo.MoveTop(60)
	assert.Equal(t, 110.0, photo.Top)
	assert.Equal(t, 110.0, photo.ClipPath.Top)
}

func TestCardProfile_Validate(t *testing.T) {
	p := CardProfile{BackgroundColor: "#49c088", AccentColor: "#fff"}
	assert.NoError(t, p.Validate())

	p.SocialLinks = make([]SocialLink, MaxSocialLinks+1)
	assert.Error(t, p.Validate())

	p.SocialLinks = nil
	p.AccentColor = "teal"
	assert.Error(t, p.Validate())

	p.AccentColor = ""
	p.ProfileImage = "data:image/png;base64,!!"
	assert.Error(t, p.Validate())
}

func TestCardProfile_Handle(t *testing.T) {
	p := CardProfile{SocialLinks: []SocialLink{
		{Platform: "facebook", URL: "u1"},
		{Platform: "instagram", URL: "u2", Handle: "@bat_mn"},
	}}
	assert.Equal(t, "bat_mn", p.Handle())
	assert.Equal(t, DefaultBackgroundColor, p.WithDefaults().BackgroundColor)
}

func TestParseDataURI(t *testing.T) {
	d, err := ParseDataURI("data:image/PNG;name=a.png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", d.MIME)
	b, err := d.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	_, err = ParseDataURI("https://example.com/a.png")
	assert.Error(t, err)
}
