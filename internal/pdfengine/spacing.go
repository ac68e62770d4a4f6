package pdfengine

import "github.com/ledongthuc/pdf"

// spacing is the word spacing state one glyph was shown under
type spacing struct {
	tw, tfs float64
	reset   bool // the text position was set since the previous glyph
	space   bool // single-byte code 32, the only code Tw applies to
}

// wordShifts replays the text operators of a page content stream and
// returns, for each glyph in texts, how far word spacing (Tw) moves it to
// the right. The reader positions glyphs without Tw. It returns nil when
// the replay does not line up with texts, as happens with multi-byte
// encodings.
func wordShifts(strm pdf.Value, texts []pdf.Text) []float64 {
	var (
		states  []spacing
		tw, tfs float64
		saved   [][2]float64
		reset   bool
	)
	show := func(s string) {
		for i := 0; i < len(s); i++ {
			states = append(states, spacing{tw: tw, tfs: tfs, reset: reset, space: s[i] == ' '})
			reset = false
		}
	}

	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		args := make([]pdf.Value, stk.Len())
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "q":
			saved = append(saved, [2]float64{tw, tfs})
		case "Q":
			if n := len(saved); n > 0 {
				tw, tfs = saved[n-1][0], saved[n-1][1]
				saved = saved[:n-1]
			}
			reset = true
		case "BT", "Td", "TD", "Tm", "T*":
			reset = true
		case "Tw":
			if len(args) == 1 {
				tw = args[0].Float64()
			}
		case "Tf":
			if len(args) == 2 {
				tfs = args[1].Float64()
			}
		case "\"":
			if len(args) == 3 {
				tw = args[0].Float64()
				reset = true
				show(args[2].RawString())
			}
		case "'":
			if len(args) == 1 {
				reset = true
				show(args[0].RawString())
			}
		case "Tj":
			if len(args) == 1 {
				show(args[0].RawString())
			}
		case "TJ":
			if len(args) == 1 {
				v := args[0]
				for i := 0; i < v.Len(); i++ {
					if x := v.Index(i); x.Kind() == pdf.String {
						show(x.RawString())
					}
				}
				show("\n")
			}
		}
	})

	if len(states) != len(texts) {
		return nil
	}
	shifts := make([]float64, len(texts))
	offset := 0.0
	for i, st := range states {
		if st.reset {
			offset = 0
		}
		shifts[i] = offset
		if st.space && st.tfs != 0 {
			// Tw is in unscaled text space; FontSize already carries Tfs
			// times the text and page scaling.
			offset += st.tw * texts[i].FontSize / st.tfs
		}
	}
	return shifts
}
