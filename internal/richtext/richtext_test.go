package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertTag(t *testing.T) {
	tests := []struct {
		name    string
		content string
		start   int
		end     int
		tag     Tag
		url     string
		want    string
	}{
		{name: "bold selection", content: "pay the tax now", start: 4, end: 11, tag: TagBold, want: "pay <b>the tax</b> now"},
		{name: "bold placeholder", content: "ab", start: 1, end: 1, tag: TagBold, want: "a<b>Bold Text</b>b"},
		{name: "heading", content: "Intro", start: 0, end: 5, tag: TagHeading, want: `<h1 class="text-4xl font-serif mt-12 mb-6">Intro</h1>`},
		{name: "paragraph placeholder", content: "", start: 0, end: 0, tag: TagParagraph, want: `<p class="text-lg leading-relaxed mb-6">Paragraph text...</p>`},
		{name: "gap replaces selection", content: "x-y", start: 1, end: 2, tag: TagGap, want: `x<div class="h-12"></div>y`},
		{name: "highlight", content: "urgent", start: 0, end: 6, tag: TagHighlight, want: `<span class="bg-[#CC1414] text-white px-2 py-1">urgent</span>`},
		{name: "image escapes url", content: "", start: 0, end: 0, tag: TagImage, url: `https://cdn.example.com/a.png" onload="x`, want: `<img src="https://cdn.example.com/a.png&#34; onload=&#34;x" class="w-full my-8" />`},
		{name: "offsets clamped", content: "abc", start: -4, end: 99, tag: TagBold, want: "<b>abc</b>"},
		{name: "rune offsets", content: "कर नोटिस", start: 3, end: 8, tag: TagBold, want: "कर <b>नोटिस</b>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InsertTag(tt.content, tt.start, tt.end, tt.tag, tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInsertTag_Errors(t *testing.T) {
	_, err := InsertTag("a", 0, 0, TagImage, " ")
	assert.Error(t, err)
	_, err = InsertTag("a", 0, 0, Tag("marquee"), "")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	html, err := Render("## Key Points\n\nThe **Finance Act** changed.\n\n<span class=\"bg-[#CC1414]\">Act now</span>\n\n| A | B |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, html, `<h2 id="key-points">Key Points</h2>`)
	assert.Contains(t, html, "<strong>Finance Act</strong>")
	assert.Contains(t, html, `<span class="bg-[#CC1414]">Act now</span>`, "editor HTML is kept")
	assert.Contains(t, html, "<table>")
}

func TestExcerpt(t *testing.T) {
	html := `<h1>GST Update</h1><script>track()</script><p>The council has   revised rates for legal services, effective next quarter.</p>`

	got, err := Excerpt(html, 200)
	require.NoError(t, err)
	assert.Equal(t, "GST UpdateThe council has revised rates for legal services, effective next quarter.", got)

	got, err = Excerpt(`<p>The council has revised rates for legal services.</p>`, 30)
	require.NoError(t, err)
	assert.Equal(t, "The council has revised rates…", got)
}

func TestAssetRefs(t *testing.T) {
	html := `<img src="/assets/image/a.png"><p><a href="/reports/q1.PDF">Download</a> <a href="/about">About</a></p>
<audio src="https://cdn.example.com/ep4.mp3"></audio><img src="/assets/image/a.png"><img src="">`

	refs, err := AssetRefs(html)
	require.NoError(t, err)
	assert.Equal(t, []string{"/assets/image/a.png", "/reports/q1.PDF", "https://cdn.example.com/ep4.mp3"}, refs)
}
