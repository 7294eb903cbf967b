package tasks

// IsIncomplete reports whether line is a task with an incomplete mark.
func (p *Patterns) IsIncomplete(line string) bool {
	return p.incomplete.MatchString(line)
}

// IsCompleted reports whether line is a task with a complete mark, or a
// canceled mark when canceled tasks are supported.
func (p *Patterns) IsCompleted(line string) bool {
	return p.completed.MatchString(line)
}

// IsAnyTask reports whether line is a checkbox item with any mark.
func (p *Patterns) IsAnyTask(line string) bool {
	return anyTaskRe.MatchString(line)
}

// IsPlainListItem reports whether line is a "- " list item without a
// checkbox.
func (p *Patterns) IsPlainListItem(line string) bool {
	return !anyTaskRe.MatchString(line) && anyListItemRe.MatchString(line)
}

// ClassOf returns the class of a task line's mark. ok is false when line is
// not a task line at all.
func (p *Patterns) ClassOf(line string) (c Class, ok bool) {
	m := taskPrefixRe.FindStringSubmatch(line)
	if m == nil || !anyTaskRe.MatchString(line) {
		return Unrecognized, false
	}
	return p.vocab.ClassOf(m[2]), true
}
