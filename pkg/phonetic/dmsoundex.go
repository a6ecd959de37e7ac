package phonetic

import "strings"

// dmEntry is one row of the Daitch-Mokotoff coding table: the codes emitted
// when the matched letter group is at the start of the word, before a vowel,
// or anywhere else, plus an optional alternate group that doubles the result
// set when the group has two plausible sounds.
type dmEntry struct {
	vowel     bool
	first     string
	beforeVow string
	other     string
	alternate string
}

// DaitchMokotoff encodes words with the Daitch-Mokotoff Soundex rules, which
// handle slavic and germanic name spellings much better than plain soundex.
// A word can produce several keys.
type DaitchMokotoff struct {
	entries  map[string]dmEntry
	maxEntry int
}

// NewDaitchMokotoff builds the encoder with its full coding table.
func NewDaitchMokotoff() *DaitchMokotoff {
	d := &DaitchMokotoff{entries: make(map[string]dmEntry, 128)}
	add := func(group string, vowel bool, first, beforeVow, other, alternate string) {
		d.entries[group] = dmEntry{vowel, first, beforeVow, other, alternate}
		if len(group) > d.maxEntry {
			d.maxEntry = len(group)
		}
	}

	add("ai", true, "0", "1", "", "")
	add("aj", true, "0", "1", "", "")
	add("ay", true, "0", "1", "", "")
	add("au", true, "0", "7", "", "")
	add("a", true, "0", "", "", "")
	add("b", false, "7", "7", "7", "")
	add("chs", false, "5", "54", "54", "")
	add("ch", false, "5", "5", "5", "tch")
	add("ck", false, "5", "5", "5", "tsk")
	add("c", false, "5", "5", "5", "tz")
	add("cz", false, "4", "4", "4", "")
	add("cs", false, "4", "4", "4", "")
	add("csz", false, "4", "4", "4", "")
	add("czs", false, "4", "4", "4", "")
	add("drz", false, "4", "4", "4", "")
	add("drs", false, "4", "4", "4", "")
	add("ds", false, "4", "4", "4", "")
	add("dsh", false, "4", "4", "4", "")
	add("dz", false, "4", "4", "4", "")
	add("dzh", false, "4", "4", "4", "")
	add("dzs", false, "4", "4", "4", "")
	add("d", false, "3", "3", "3", "")
	add("dt", false, "3", "3", "3", "")
	add("ei", true, "0", "1", "", "")
	add("ey", true, "0", "1", "", "")
	add("ej", true, "0", "1", "", "")
	add("eu", true, "1", "1", "", "")
	add("e", true, "0", "", "", "")
	add("fb", false, "7", "7", "7", "")
	add("f", false, "7", "7", "7", "")
	add("g", false, "5", "5", "5", "")
	add("h", false, "5", "5", "", "")
	add("ia", true, "1", "", "", "")
	add("ie", true, "1", "", "", "")
	add("io", true, "1", "", "", "")
	add("iu", true, "1", "", "", "")
	add("i", true, "0", "", "", "")
	add("j", false, "1", "1", "1", "dzh")
	add("ks", false, "5", "54", "54", "")
	add("kh", false, "5", "5", "5", "")
	add("k", false, "5", "5", "5", "")
	add("l", false, "8", "8", "8", "")
	add("mn", false, "", "66", "66", "")
	add("m", false, "6", "6", "6", "")
	add("nm", false, "", "66", "66", "")
	add("n", false, "6", "6", "6", "")
	add("oi", true, "0", "1", "", "")
	add("oj", true, "0", "1", "", "")
	add("oy", true, "0", "1", "", "")
	add("o", true, "0", "", "", "")
	add("p", false, "7", "7", "7", "")
	add("pf", false, "7", "7", "7", "")
	add("ph", false, "7", "7", "7", "")
	add("q", false, "5", "5", "5", "")
	add("rz", false, "94", "94", "94", "")
	add("rs", false, "94", "94", "94", "")
	add("r", false, "9", "9", "9", "")
	add("schtsch", false, "2", "4", "4", "")
	add("schtsh", false, "2", "4", "4", "")
	add("schtch", false, "2", "4", "4", "")
	add("sch", false, "4", "4", "4", "")
	add("shtch", false, "2", "4", "4", "")
	add("shch", false, "2", "4", "4", "")
	add("shtsh", false, "2", "4", "4", "")
	add("sht", false, "2", "43", "43", "")
	add("scht", false, "2", "43", "43", "")
	add("schd", false, "2", "43", "43", "")
	add("sh", false, "4", "4", "4", "")
	add("stch", false, "2", "4", "4", "")
	add("stsch", false, "2", "4", "4", "")
	add("sc", false, "2", "4", "4", "")
	add("strz", false, "2", "4", "4", "")
	add("strs", false, "2", "4", "4", "")
	add("stsh", false, "2", "4", "4", "")
	add("st", false, "2", "43", "43", "")
	add("szcz", false, "2", "4", "4", "")
	add("szcs", false, "2", "4", "4", "")
	add("szt", false, "2", "43", "43", "")
	add("shd", false, "2", "43", "43", "")
	add("szd", false, "2", "43", "43", "")
	add("sd", false, "2", "43", "43", "")
	add("sz", false, "4", "4", "4", "")
	add("s", false, "4", "4", "4", "")
	add("tch", false, "4", "4", "4", "")
	add("ttch", false, "4", "4", "4", "")
	add("ttsch", false, "4", "4", "4", "")
	add("th", false, "3", "3", "3", "")
	add("trz", false, "4", "4", "4", "")
	add("trs", false, "4", "4", "4", "")
	add("trch", false, "4", "4", "4", "")
	add("tsh", false, "4", "4", "4", "")
	add("ts", false, "4", "4", "4", "")
	add("tts", false, "4", "4", "4", "")
	add("ttsz", false, "4", "4", "4", "")
	add("tc", false, "4", "4", "4", "")
	add("tz", false, "4", "4", "4", "")
	add("ttz", false, "4", "4", "4", "")
	add("tzs", false, "4", "4", "4", "")
	add("tsz", false, "4", "4", "4", "")
	add("t", false, "3", "3", "3", "")
	add("ui", true, "0", "1", "", "")
	add("uj", true, "0", "1", "", "")
	add("uy", true, "0", "1", "", "")
	add("u", true, "0", "", "", "")
	add("ue", true, "0", "", "", "")
	add("v", false, "7", "7", "7", "")
	add("w", false, "7", "7", "7", "")
	add("x", false, "5", "54", "54", "")
	add("y", true, "1", "", "", "")
	add("zh", false, "4", "4", "4", "")
	add("zs", false, "4", "4", "4", "")
	add("zsch", false, "4", "4", "4", "")
	add("zhsh", false, "4", "4", "4", "")
	add("z", false, "4", "4", "4", "")

	return d
}

// findEntry matches the longest coding-table group starting at offset.
// Returns the matched length, zero when nothing matches.
func (d *DaitchMokotoff) findEntry(word string, offset int) (dmEntry, int) {
	var found dmEntry
	length := 0
	end := min(offset+d.maxEntry, len(word))
	for i := offset + 1; i <= end; i++ {
		e, ok := d.entries[word[offset:i]]
		if !ok {
			break
		}
		found = e
		length = i - offset
	}
	return found, length
}

// entryValue picks the code for an entry by position: beforeVow when the
// following entry starts with a vowel, other otherwise.
func entryValue(entries []dmEntry, index int, e dmEntry) string {
	if index+1 < len(entries) && entries[index+1].vowel {
		return e.beforeVow
	}
	return e.other
}

// Encode returns every Daitch-Mokotoff key for word. Entries with an
// alternate sound fork the result set; adjacent identical codes collapse.
func (d *DaitchMokotoff) Encode(word string) []string {
	w := strings.ToLower(word)

	var entries []dmEntry
	for offset := 0; offset < len(w); {
		e, length := d.findEntry(w, offset)
		if length == 0 {
			return nil
		}
		entries = append(entries, e)
		offset += length
	}
	if len(entries) == 0 {
		return nil
	}

	result := []string{entries[0].first}
	if entries[0].alternate != "" {
		result = append(result, d.entries[entries[0].alternate].first)
	}

	for i := 1; i < len(entries); i++ {
		size := len(result)
		value := entryValue(entries, i, entries[i])

		if entries[i].alternate != "" {
			alt := d.entries[entries[i].alternate]
			altValue := entryValue(entries, i, alt)
			for k := 0; k < size; k++ {
				result = append(result, result[k]+altValue)
			}
		}
		for k := 0; k < size; k++ {
			result[k] += value
		}
	}

	for i, key := range result {
		result[i] = collapseRuns(key)
	}
	return result
}

// collapseRuns removes adjacent duplicate code characters.
func collapseRuns(s string) string {
	var b strings.Builder
	var last byte
	for i := 0; i < len(s); i++ {
		if i > 0 && s[i] == last {
			continue
		}
		b.WriteByte(s[i])
		last = s[i]
	}
	return b.String()
}
