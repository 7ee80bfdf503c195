package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToPascalCase(t *testing.T) {
	tests := map[string]string{
		"vote.cast":                   "VoteCast",
		"LEADER_PLUGIN":               "LeaderPlugin",
		"leaderPluginRef":             "LeaderPluginRef",
		"DLIB_API_GET_MOJANG_SERVICE": "DlibApiGetMojangService",
		"HTTPServer":                  "HTTPServer",
		"v2.reload":                   "V2Reload",
		"VOTE#Plain.Close":            "VotePlainClose",
		"élection.ouverte":            "ÉlectionOuverte",
		"A":                           "A",
		"":                            "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ToPascalCase(in))
		})
	}
}

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"vote", "cast", "v2"}, Words("vote.cast#v2"))
	assert.Empty(t, Words("#.()"))
}
