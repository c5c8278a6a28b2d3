package document

// NewSampleDocument returns a small badge scene used on first run and by
// the CLI "sample" command. Ids are consecutive starting at firstID.
func NewSampleDocument(firstID int64) Snapshot {
	id := firstID
	next := func() int64 {
		v := id
		id++
		return v
	}

	return Snapshot{
		{
			ID:   next(),
			Type: TypeRectangle,
			Props: Normalize(TypeRectangle, Properties{
				KeyX: 40.0, KeyY: 40.0,
				KeyWidth: 320.0, KeyHeight: 420.0,
				KeyColor:        "#1a1a2e",
				KeyCornerRadius: 16.0,
				KeyBorderWidth:  2.0,
			}),
		},
		{
			ID:   next(),
			Type: TypeCircle,
			Props: Normalize(TypeCircle, Properties{
				KeyX: 200.0, KeyY: 190.0,
				KeyRadius: 90.0,
				KeyColor:  "#e94560",
			}),
		},
		{
			ID:   next(),
			Type: TypeCircleText,
			Props: Normalize(TypeCircleText, Properties{
				KeyX: 200.0, KeyY: 190.0,
				KeyRadius:       86.0,
				KeyText:         "BADGE MAKER",
				KeyFontFamily:   DefaultFontFamily,
				KeyFontSize:     14.0,
				KeyStartAngle:   0.0,
				KeyKerning:      2.0,
				KeyTextInside:   true,
				KeyInwardFacing: true,
				KeyColor:        "white",
			}),
		},
		{
			ID:   next(),
			Type: TypeText,
			Props: Normalize(TypeText, Properties{
				KeyX: 110.0, KeyY: 360.0,
				KeyText:       "Hello, I am",
				KeyFontFamily: DefaultFontFamily,
				KeyFontSize:   DefaultFontSize,
				KeyColor:      "white",
			}),
		},
	}
}
