package chunkdb_test

import (
	"github.com/bsm/chunkdb"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("DynamicData", func() {
	var db *chunkdb.DB
	var subject *chunkdb.DynamicData

	BeforeEach(func() {
		db = openDB(tempPath(), nil)

		var err error
		subject, err = chunkdb.NewDynamicData(db, 1, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(subject.Set([]byte("hello world"))).To(Succeed())
	})

	AfterEach(func() {
		_ = db.Close()
	})

	deactivate := func() {
		_, err := db.NewChunk(chunkdb.TypeDynamic, 1, 2)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
	}

	It("should read back", func() {
		Expect(subject.Bytes()).To(Equal([]byte("hello world")))
		Expect(subject.Len()).To(Equal(11))
	})

	It("should grow in place while active", func() {
		id := subject.ChunkID()
		Expect(subject.Set([]byte("hello wonderful world"))).To(Succeed())
		Expect(subject.ChunkID()).To(Equal(id))
		Expect(subject.Bytes()).To(Equal([]byte("hello wonderful world")))
		Expect(db.Chunks()).To(HaveLen(2))
	})

	It("should bank unused space as padding", func() {
		deactivate()
		id := subject.ChunkID()

		Expect(subject.Set([]byte("hi"))).To(Succeed())
		Expect(subject.ChunkID()).To(Equal(id))
		Expect(subject.Bytes()).To(Equal([]byte("hi")))

		info := db.ChunkInfo(id)
		Expect(info.Size).To(Equal(uint32(2)))
		Expect(info.Padding).To(Equal(uint32(9)))
	})

	It("should reuse headroom without allocating", func() {
		deactivate()
		id := subject.ChunkID()
		Expect(subject.Set([]byte("hi"))).To(Succeed())

		n := len(db.Chunks())
		Expect(subject.Set([]byte("hello again"))).To(Succeed())
		Expect(subject.ChunkID()).To(Equal(id))
		Expect(db.Chunks()).To(HaveLen(n))
		Expect(subject.Bytes()).To(Equal([]byte("hello again")))
		expectContiguous(db)
	})

	It("should relocate when an inactive chunk runs out of space", func() {
		deactivate()
		old := subject.ChunkID()
		oldInfo := db.ChunkInfo(old)

		Expect(subject.Set([]byte("hello world, and more"))).To(Succeed())
		Expect(subject.ChunkID()).NotTo(Equal(old))
		Expect(subject.Bytes()).To(Equal([]byte("hello world, and more")))

		Expect(db.ChunkInfo(old).Type).To(Equal(chunkdb.TypeRemoved))
		Expect(db.ChunkInfo(old).Reserved()).To(Equal(oldInfo.Reserved()))

		info := db.ChunkInfo(subject.ChunkID())
		Expect(info.Type).To(Equal(chunkdb.TypeDynamic))
		Expect(info.Owner).To(Equal(uint8(1)))
		Expect(info.Index).To(Equal(uint32(1)))
		Expect(info.Offset).To(BeNumerically(">", oldInfo.Offset))
		Expect(db.ActiveChunk()).To(Equal(subject.ChunkID()))
		expectContiguous(db)
	})

	It("should store empty values", func() {
		Expect(subject.Set(nil)).To(Succeed())
		Expect(subject.Bytes()).To(BeEmpty())
		Expect(subject.Len()).To(BeZero())
	})
})
