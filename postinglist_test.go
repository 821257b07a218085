package fts

import "testing"

func docIDFromByte(b byte) DocID {
	var d DocID
	d[15] = b
	return d
}

func TestNewPostingList(t *testing.T) {
	pl := NewPostingList()
	if pl.head == nil {
		t.Error("NewPostingList() created nil head")
	}
	if pl.height != 1 {
		t.Errorf("NewPostingList() height = %d, want 1", pl.height)
	}
}

func TestPostingList_Upsert_Single(t *testing.T) {
	pl := NewPostingList()
	doc := docIDFromByte(1)
	pl.Upsert(doc, []uint32{5, 2, 2, 8})

	c := pl.Cursor()
	if !c.Valid() {
		t.Fatal("cursor invalid after single upsert")
	}
	if c.DocID() != doc {
		t.Errorf("DocID() = %v, want %v", c.DocID(), doc)
	}
	want := []uint32{2, 5, 8}
	got := c.Posting().Positions
	if len(got) != len(want) {
		t.Fatalf("Positions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Positions[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPostingList_Upsert_MergesExisting(t *testing.T) {
	pl := NewPostingList()
	doc := docIDFromByte(1)
	pl.Upsert(doc, []uint32{1, 3})
	pl.Upsert(doc, []uint32{2, 3, 4})

	if pl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (same doc upserted twice)", pl.Len())
	}
	c := pl.Cursor()
	got := c.Posting().Positions
	want := []uint32{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Positions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Positions[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPostingList_Upsert_OutOfOrder(t *testing.T) {
	pl := NewPostingList()
	docs := []byte{5, 3, 4, 1, 2}
	for _, b := range docs {
		pl.Upsert(docIDFromByte(b), []uint32{0})
	}

	var order []byte
	for c := pl.Cursor(); c.Valid(); c.Advance() {
		order = append(order, c.DocID()[15])
	}
	want := []byte{1, 2, 3, 4, 5}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestPostingList_Delete(t *testing.T) {
	pl := NewPostingList()
	pl.Upsert(docIDFromByte(1), []uint32{0})
	pl.Upsert(docIDFromByte(2), []uint32{0})
	pl.Upsert(docIDFromByte(3), []uint32{0})

	if !pl.Delete(docIDFromByte(2)) {
		t.Error("Delete() = false, want true")
	}
	if pl.Len() != 2 {
		t.Errorf("Len() after delete = %d, want 2", pl.Len())
	}

	var order []byte
	for c := pl.Cursor(); c.Valid(); c.Advance() {
		order = append(order, c.DocID()[15])
	}
	want := []byte{1, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %d, want %d", i, order[i], want[i])
		}
	}
}

func TestPostingList_Delete_NotFound(t *testing.T) {
	pl := NewPostingList()
	pl.Upsert(docIDFromByte(1), []uint32{0})

	if pl.Delete(docIDFromByte(9)) {
		t.Error("Delete() = true, want false for absent doc")
	}
}

func TestPostingList_SeekGE(t *testing.T) {
	pl := NewPostingList()
	for _, b := range []byte{2, 4, 6, 8} {
		pl.Upsert(docIDFromByte(b), []uint32{0})
	}

	tests := []struct {
		name   string
		target byte
		want   byte
		wantOK bool
	}{
		{"exact match", 4, 4, true},
		{"between elements", 5, 6, true},
		{"before first", 0, 2, true},
		{"after last", 9, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pl.Cursor()
			c.SeekGE(docIDFromByte(tt.target))
			if tt.wantOK {
				if !c.Valid() {
					t.Fatalf("SeekGE(%d) invalid, want doc %d", tt.target, tt.want)
				}
				if c.DocID()[15] != tt.want {
					t.Errorf("SeekGE(%d) = %d, want %d", tt.target, c.DocID()[15], tt.want)
				}
			} else if c.Valid() {
				t.Errorf("SeekGE(%d) = %d, want exhausted", tt.target, c.DocID()[15])
			}
		})
	}
}

func TestPostingList_Len_Empty(t *testing.T) {
	pl := NewPostingList()
	if pl.Len() != 0 {
		t.Errorf("Len() on empty list = %d, want 0", pl.Len())
	}
}

func TestMergeSortedUnique(t *testing.T) {
	tests := []struct {
		name string
		base []uint32
		new  []uint32
		want []uint32
	}{
		{"both empty", nil, nil, []uint32{}},
		{"fresh only", nil, []uint32{3, 1, 2, 1}, []uint32{1, 2, 3}},
		{"merge disjoint", []uint32{1, 3}, []uint32{2, 4}, []uint32{1, 2, 3, 4}},
		{"merge overlapping", []uint32{1, 2, 3}, []uint32{2, 3, 4}, []uint32{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeSortedUnique(tt.base, tt.new)
			if len(got) != len(tt.want) {
				t.Fatalf("mergeSortedUnique() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func BenchmarkPostingList_Upsert(b *testing.B) {
	pl := NewPostingList()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pl.Upsert(docIDFromByte(byte(i)), []uint32{uint32(i)})
	}
}

func BenchmarkPostingList_SeekGE(b *testing.B) {
	pl := NewPostingList()
	for i := 0; i < 255; i++ {
		pl.Upsert(docIDFromByte(byte(i)), []uint32{0})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := pl.Cursor()
		c.SeekGE(docIDFromByte(byte(i % 255)))
	}
}
