package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

func TestClean(t *testing.T) {
	doc := mustParse(t, `{
		"Үлкен топ":[
			{"Есім":"Думан","Репертуар":["Жастар биы","Адай"]},
			{"Есім":"Айгерім","Репертуар":["Адай"," Адай "]},
			{"Есім":"Думан ","Репертуар":["Жастар биі","Сарыарқа",""]},
			{"Есім":"","Репертуар":["x"]}
		]
	}`)
	aliases := map[string]string{"Жастар биы": "Жастар биі"}

	r := doc.Clean(aliases)

	assert.Equal(t, CleanReport{Merged: 1, Aliased: 1, Duplicates: 2, Dropped: 2}, r)
	assert.Equal(t, []Participant{
		{Name: "Думан", Pieces: []string{"Жастар биі", "Адай", "Сарыарқа"}},
		{Name: "Айгерім", Pieces: []string{"Адай"}},
	}, doc.Groups[0].Participants)
}

func TestCleanIsIdempotent(t *testing.T) {
	doc := mustParse(t, `{"G":[{"name":"A","pieces":["x","x"]},{"name":"A","pieces":["y"]}]}`)
	doc.Clean(nil)
	first, err := doc.MarshalJSON()
	require.NoError(t, err)

	r := doc.Clean(nil)
	second, err := doc.MarshalJSON()
	require.NoError(t, err)

	assert.Equal(t, CleanReport{}, r)
	assert.Equal(t, string(first), string(second))
}

func TestAddRepertoire(t *testing.T) {
	doc := mustParse(t, `{"Үлкен топ":[{"name":"Думан","pieces":["Адай"]}]}`)

	require.NoError(t, doc.AddRepertoire("Үлкен топ", "Думан", []string{"Қосалқа", "Адай"}, nil))
	require.NoError(t, doc.AddRepertoire("Үлкен топ", "Айгерім", []string{"Нұрлы таң"}, nil))
	require.NoError(t, doc.AddRepertoire("Кіші топ", "Ерлан", []string{"Тепеңкөк"}, map[string]string{"Тепеңкөк": "Тепең көк"}))

	require.Len(t, doc.Groups, 2)
	assert.Equal(t, []Participant{
		{Name: "Думан", Pieces: []string{"Адай", "Қосалқа"}},
		{Name: "Айгерім", Pieces: []string{"Нұрлы таң"}},
	}, doc.Groups[0].Participants)
	assert.Equal(t, Group{Name: "Кіші топ", Participants: []Participant{
		{Name: "Ерлан", Pieces: []string{"Тепең көк"}},
	}}, doc.Groups[1])
}

func TestAddRepertoireRejectsEmptyNames(t *testing.T) {
	doc := &Document{}
	assert.ErrorIs(t, doc.AddRepertoire(" ", "A", nil, nil), types.ErrValidation)
	assert.ErrorIs(t, doc.AddRepertoire("G", "", nil, nil), types.ErrValidation)
	assert.Empty(t, doc.Groups)
}
