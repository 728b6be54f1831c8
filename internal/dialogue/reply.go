package dialogue

// Button is one inline keyboard button: a label and the opaque action
// token delivered back when pressed.
type Button struct {
	Label  string
	Action string
}

// Reply is what a screen handler produces. Text is HTML-formatted for
// the chat transport; Keyboard rows become inline buttons; Image, when
// set, is attached to the message; Sticker is sent as a separate
// message before the reply.
type Reply struct {
	Text     string
	Keyboard [][]Button
	Image    string
	Sticker  string
}

func row(buttons ...Button) []Button { return buttons }

func (r *Reply) addRow(buttons ...Button) {
	r.Keyboard = append(r.Keyboard, buttons)
}
