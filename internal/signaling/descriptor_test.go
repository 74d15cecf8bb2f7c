package signaling

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSDP = "v=0\r\no=- 4611731400430051336 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n" +
	"a=group:BUNDLE 0\r\nm=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n" +
	"c=IN IP4 0.0.0.0\r\na=candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host\r\n" +
	"a=end-of-candidates\r\n"

func TestParseJSON(t *testing.T) {
	d, err := Parse(`{"type":"offer","sdp":"v=0\r\n"}`)
	require.NoError(t, err)
	assert.Equal(t, TypeOffer, d.Type)
	assert.Equal(t, "v=0\r\n", d.SDP)
	assert.True(t, d.IsOffer())
}

func TestParseRejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"not json",
		`{"type":"offer"`,
		`{"type":"pranswer","sdp":"v=0"}`,
		`{"type":"answer","sdp":""}`,
		`{"type":"answer"}`,
		"pd1:!!!",
		"pd1:AAAA",
	}
	for _, in := range inputs {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrParse, "input %q", in)
		assert.True(t, IsParseError(err))
	}
}

func TestJSONMatchesBrowserShape(t *testing.T) {
	d := Descriptor{Type: TypeAnswer, SDP: "v=0\r\n"}
	assert.JSONEq(t, `{"type":"answer","sdp":"v=0\r\n"}`, d.JSON())
	assert.NotContains(t, d.JSON(), "\n")
}

func TestCompactRoundTrip(t *testing.T) {
	d := Descriptor{Type: TypeOffer, SDP: sampleSDP}

	short, err := Encode(d, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(short, compactPrefix))
	assert.Less(t, len(short), len(d.JSON()))

	got, err := Parse(short)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	long, err := Encode(d, false)
	require.NoError(t, err)
	got, err = Parse(long)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestRead(t *testing.T) {
	d := Descriptor{Type: TypeAnswer, SDP: sampleSDP}
	js := d.JSON()

	got, err := Read(strings.NewReader("\n\n" + js + "\n"))
	require.NoError(t, err)
	assert.Equal(t, d, got)

	// terminal wrapped the paste
	half := strings.Index(js, `"sdp":`) + len(`"sdp":`)
	got, err = Read(strings.NewReader(js[:half] + "\n" + js[half:] + "\n"))
	require.NoError(t, err)
	assert.Equal(t, d, got)

	_, err = Read(strings.NewReader("garbage\n\n"))
	assert.ErrorIs(t, err, ErrParse)

	_, err = Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrParse)
}

func TestReaderKeepsInputAfterBadPaste(t *testing.T) {
	d := Descriptor{Type: TypeOffer, SDP: sampleSDP}
	r := NewReader(strings.NewReader("not a descriptor\n\n" + d.JSON() + "\n"))

	_, err := r.Next()
	require.ErrorIs(t, err, ErrParse)

	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, d, got)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
