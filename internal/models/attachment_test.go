package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbg-space/core/internal/modules/storage/blob"
)

func TestAttachmentsRoundTripCurrentShape(t *testing.T) {
	in := Attachments{{
		Name:       "photo.jpg",
		Descriptor: blob.Local("abc.jpg"),
		MimeType:   "image/jpeg",
		Size:       42,
		Category:   CategoryImage,
	}}
	v, err := in.Value()
	require.NoError(t, err)

	var out Attachments
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)
}

func TestAttachmentsScanLegacyShape(t *testing.T) {
	raw := `[
		{"nom":"clip.mp4","secure_url":"https://res.example.com/v/abc","url":"https://res.example.com/v/abc",
		 "resource_type":"video","type":"video/mp4","taille":1024,"public_id":"vbg-temoignages/abc"},
		{"nom":"voice.mp3","url":"https://res.example.com/a/xyz","resource_type":"audio","type":"audio/mpeg","taille":10},
		{"nom":"old.png","url":"/uploads/0f0f.png","type":"image/png","taille":3}
	]`
	var list Attachments
	require.NoError(t, list.Scan([]byte(raw)))
	require.Len(t, list, 3)

	assert.Equal(t, blob.Remote("https://res.example.com/v/abc", "vbg-temoignages/abc", "video"), list[0].Descriptor)
	assert.Equal(t, "clip.mp4", list[0].Name)
	assert.EqualValues(t, 1024, list[0].Size)
	assert.Equal(t, CategoryVideo, list[0].Category)

	assert.Equal(t, blob.KindRemote, list[1].Descriptor.Kind)
	assert.Empty(t, list[1].Descriptor.PublicID)
	assert.Equal(t, "video", list[1].Descriptor.ResourceType)
	assert.Equal(t, CategoryAudio, list[1].Category)

	assert.Equal(t, blob.Local("0f0f.png"), list[2].Descriptor)
	assert.Equal(t, CategoryImage, list[2].Category)
}

func TestAttachmentsScanEmpty(t *testing.T) {
	for _, v := range []interface{}{nil, "", "null", []byte("  ")} {
		var list Attachments
		require.NoError(t, list.Scan(v))
		assert.Empty(t, list)
	}
	var list Attachments
	assert.Error(t, list.Scan(12))
	assert.Error(t, list.Scan("{not json"))
}

func TestAttachmentJSONKeepsCurrentShape(t *testing.T) {
	a := Attachment{Name: "a.webm", Descriptor: blob.Remote("https://cdn/x", "k/x", "video"), MimeType: "video/webm", Size: 1}
	b, err := json.Marshal(a)
	require.NoError(t, err)

	var back Attachment
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, a.Descriptor, back.Descriptor)
	assert.Equal(t, CategoryVideo, back.Category)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryImage, CategoryOf("image/webp", "x"))
	assert.Equal(t, CategoryAudio, CategoryOf("AUDIO/OGG", "x"))
	assert.Equal(t, CategoryVideo, CategoryOf("", "movie.MP4"))
	assert.Equal(t, CategoryOther, CategoryOf("application/pdf", "doc.pdf"))
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, ok := ParseStatus(" " + string(s) + " ")
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseStatus("bogus_status")
	assert.False(t, ok)
	_, ok = ParseStatus("NEW")
	assert.False(t, ok)
}
