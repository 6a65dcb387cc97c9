package dict

import "sort"

// FourSectionFormat is the dictionary control-info `format` marker value
// for a four-section plain-front-coded dictionary (spec §4.7, §6).
const FourSectionFormat = "four-section-plain-front-coding-marker"

// Dictionary composes the four PFC sections (shared/subjects/predicates/
// objects) into the id-space remapping of spec §4.7: subject-ids and
// object-ids both resolve through `shared` before falling through to
// their own section; predicate-ids index `predicates` directly.
type Dictionary struct {
	Shared     Section
	Subjects   Section
	Predicates Section
	Objects    Section
}

// SubjectIDToString resolves a subject-id through shared, then subjects.
func (d *Dictionary) SubjectIDToString(id uint64) (string, error) {
	shared := d.Shared.NumStrings()
	if id <= shared {
		return d.Shared.IDToString(id)
	}
	return d.Subjects.IDToString(id - shared)
}

// StringToSubjectID resolves s to a subject-id, checking shared first.
func (d *Dictionary) StringToSubjectID(s string) (uint64, error) {
	id, err := d.Shared.StringToID(s)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}
	id, err = d.Subjects.StringToID(s)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, nil
	}
	return d.Shared.NumStrings() + id, nil
}

// ObjectIDToString resolves an object-id through shared, then objects.
func (d *Dictionary) ObjectIDToString(id uint64) (string, error) {
	shared := d.Shared.NumStrings()
	if id <= shared {
		return d.Shared.IDToString(id)
	}
	return d.Objects.IDToString(id - shared)
}

// StringToObjectID resolves s to an object-id, checking shared first.
func (d *Dictionary) StringToObjectID(s string) (uint64, error) {
	id, err := d.Shared.StringToID(s)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}
	id, err = d.Objects.StringToID(s)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, nil
	}
	return d.Shared.NumStrings() + id, nil
}

// PredicateIDToString resolves a predicate-id directly against predicates.
func (d *Dictionary) PredicateIDToString(id uint64) (string, error) {
	return d.Predicates.IDToString(id)
}

// StringToPredicateID resolves s to a predicate-id.
func (d *Dictionary) StringToPredicateID(s string) (uint64, error) {
	return d.Predicates.StringToID(s)
}

// NumShared, NumSubjects, NumPredicates, NumObjects report each section's
// string count, used by Stats and by id-space arithmetic elsewhere.
func (d *Dictionary) NumShared() uint64     { return d.Shared.NumStrings() }
func (d *Dictionary) NumSubjects() uint64   { return d.Subjects.NumStrings() }
func (d *Dictionary) NumPredicates() uint64 { return d.Predicates.NumStrings() }
func (d *Dictionary) NumObjects() uint64    { return d.Objects.NumStrings() }

// SizeInBytes returns the combined resident footprint of all four sections.
func (d *Dictionary) SizeInBytes() int64 {
	return d.Shared.SizeInBytes() + d.Subjects.SizeInBytes() + d.Predicates.SizeInBytes() + d.Objects.SizeInBytes()
}

// Close releases all four sections.
func (d *Dictionary) Close() error {
	var err error
	for _, s := range []Section{d.Shared, d.Subjects, d.Predicates, d.Objects} {
		if e := s.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Builder assembles a four-section dictionary from the subject, predicate
// and object term sets of the added triples, assigning the shared/subject-only/object-only split itself: any
// IRI used as both a subject and an object in the source graph belongs in
// `shared` (spec §4.7).
type Builder struct {
	blockSize  uint64
	subjects   map[string]struct{}
	predicates map[string]struct{}
	objects    map[string]struct{}
}

// NewDictionaryBuilder allocates a four-section dictionary builder.
func NewDictionaryBuilder(blockSize uint64) *Builder {
	return &Builder{
		blockSize:  blockSize,
		subjects:   make(map[string]struct{}),
		predicates: make(map[string]struct{}),
		objects:    make(map[string]struct{}),
	}
}

// AddTriple records the terms of one (s,p,o) triple for later sectioning.
func (b *Builder) AddTriple(s, p, o string) {
	b.subjects[s] = struct{}{}
	b.predicates[p] = struct{}{}
	b.objects[o] = struct{}{}
}

// Freeze computes the shared/subjects/predicates/objects split and
// returns the built Dictionary.
func (b *Builder) Freeze() *Dictionary {
	var shared, subjOnly, objOnly []string
	for s := range b.subjects {
		if _, isObj := b.objects[s]; isObj {
			shared = append(shared, s)
		} else {
			subjOnly = append(subjOnly, s)
		}
	}
	for o := range b.objects {
		if _, isSubj := b.subjects[o]; !isSubj {
			objOnly = append(objOnly, o)
		}
	}
	var preds []string
	for p := range b.predicates {
		preds = append(preds, p)
	}

	sort.Strings(shared)
	sort.Strings(subjOnly)
	sort.Strings(objOnly)
	sort.Strings(preds)

	return &Dictionary{
		Shared:     buildSection(shared, b.blockSize),
		Subjects:   buildSection(subjOnly, b.blockSize),
		Predicates: buildSection(preds, b.blockSize),
		Objects:    buildSection(objOnly, b.blockSize),
	}
}

func buildSection(sorted []string, blockSize uint64) *RAM {
	sb := NewBuilder(blockSize)
	for _, s := range sorted {
		sb.Add(s)
	}
	return sb.Freeze()
}

