package simfw

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/lemolatoon/lemola-os/internal/interfaces"
	"github.com/lemolatoon/lemola-os/internal/parsers/efi"
	"github.com/lemolatoon/lemola-os/internal/types"
)

func utf16(s string) []uint16 {
	u, err := efi.EncodeUTF16(s)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("Firmware", func() {
	var (
		fw   *Firmware
		fs   afero.Fs
		echo *bytes.Buffer
	)

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		Expect(afero.WriteFile(fs, "/kernel.elf", bytes.Repeat([]byte{0xAA}, 12345), 0o644)).To(Succeed())
		Expect(fs.MkdirAll("/EFI/BOOT", 0o755)).To(Succeed())

		echo = new(bytes.Buffer)
		cfg := DefaultConfig()
		cfg.Volume = fs
		cfg.Echo = echo

		var err error
		fw, err = New(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	getMap := func(size uint64) (types.Status, uint64, uint64, []byte) {
		buf := make([]byte, size)
		var key, descSize uint64
		var version uint32
		st := fw.GetMemoryMap(&size, buf, &key, &descSize, &version)
		if st != types.StatusUnsupported {
			Expect(descSize).To(Equal(uint64(DefaultDescriptorSize)))
		}
		return st, size, key, buf
	}

	Context("memory map", func() {
		It("should report the required size when the buffer is too small", func() {
			st, size, _, _ := getMap(16)
			Expect(st).To(Equal(types.StatusBufferTooSmall))
			Expect(size).To(Equal(uint64(len(DefaultRegions()) * DefaultDescriptorSize)))

			st, _, key, buf := getMap(size)
			Expect(st).To(Equal(types.StatusSuccess))
			Expect(key).To(Equal(fw.Epoch()))

			d, err := efi.ParseMemoryDescriptor(buf[DefaultDescriptorSize:])
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Type).To(Equal(types.ConventionalMemory))
			Expect(d.PhysicalStart).To(Equal(uint64(0x1000)))
		})

		It("should run the hook after a successful query", func() {
			calls := 0
			fw.AfterGetMemoryMap = func(f *Firmware) {
				calls++
				f.Touch()
			}
			_, _, key, _ := getMap(4096)
			Expect(calls).To(Equal(1))
			Expect(fw.Epoch()).NotTo(Equal(key))
		})

		It("should reject overlapping regions", func() {
			_, err := New(Config{Regions: []Region{
				{Type: types.ConventionalMemory, Start: 0, Pages: 2},
				{Type: types.ReservedMemoryType, Start: 0x1000, Pages: 1},
			}})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("page allocation", func() {
		It("should allocate at a fixed address and bump the epoch", func() {
			before := fw.Epoch()
			addr := uint64(0x100000)
			Expect(fw.AllocatePages(types.AllocateAddress, types.LoaderData, 4, &addr)).
				To(Equal(types.StatusSuccess))
			Expect(addr).To(Equal(uint64(0x100000)))
			Expect(fw.Epoch()).To(Equal(before + 1))

			Expect(fw.Regions()).To(ContainElement(types.MemoryDescriptor{
				Type: types.LoaderData, PhysicalStart: 0x100000, NumberOfPages: 4, Attribute: types.MemoryWB,
			}))
		})

		It("should refuse an address that is already taken", func() {
			addr := uint64(0x100000)
			Expect(fw.AllocatePages(types.AllocateAddress, types.LoaderData, 4, &addr)).
				To(Equal(types.StatusSuccess))
			addr = 0x102000
			Expect(fw.AllocatePages(types.AllocateAddress, types.LoaderData, 1, &addr)).
				To(Equal(types.StatusNotFound))

			addr = 0xa0000
			Expect(fw.AllocatePages(types.AllocateAddress, types.LoaderData, 1, &addr)).
				To(Equal(types.StatusNotFound))
		})

		It("should merge freed pages back", func() {
			n := len(fw.Regions())
			addr := uint64(0x100000)
			Expect(fw.AllocatePages(types.AllocateAddress, types.LoaderData, 4, &addr)).
				To(Equal(types.StatusSuccess))
			Expect(fw.Regions()).To(HaveLen(n + 1))

			Expect(fw.FreePages(addr, 4)).To(Equal(types.StatusSuccess))
			Expect(fw.Regions()).To(HaveLen(n))
			Expect(fw.FreePages(addr, 4)).To(Equal(types.StatusNotFound))
		})

		It("should allocate any pages from the top", func() {
			var addr uint64
			Expect(fw.AllocatePages(types.AllocateAnyPages, types.BootServicesData, 2, &addr)).
				To(Equal(types.StatusSuccess))
			Expect(addr).To(Equal(uint64(0x3f000000 - 2*types.PageSize)))
		})

		It("should honour a maximum address", func() {
			addr := uint64(0xfffff)
			Expect(fw.AllocatePages(types.AllocateMaxAddress, types.BootServicesData, 1, &addr)).
				To(Equal(types.StatusSuccess))
			Expect(addr).To(Equal(uint64(0x9f000)))
		})
	})

	Context("exit boot services", func() {
		It("should reject a stale key and accept the current one", func() {
			_, _, key, _ := getMap(4096)
			fw.ConOut().OutputString(utf16("tick"))
			Expect(fw.ExitBootServices(fw.ImageHandle(), key)).To(Equal(types.StatusInvalidParameter))
			Expect(fw.Exited()).To(BeFalse())

			_, _, key, _ = getMap(4096)
			Expect(fw.ExitBootServices(fw.ImageHandle(), key)).To(Equal(types.StatusSuccess))
			Expect(fw.Exited()).To(BeTrue())
		})

		It("should retire every service afterwards", func() {
			_, _, key, _ := getMap(4096)
			Expect(fw.ExitBootServices(fw.ImageHandle(), key)).To(Equal(types.StatusSuccess))

			st, _, _, _ := getMap(4096)
			Expect(st).To(Equal(types.StatusUnsupported))
			var iface any
			Expect(fw.LocateProtocol(types.SimpleFileSystemProtocolGUID, &iface)).To(Equal(types.StatusUnsupported))
			Expect(fw.ConOut().OutputString(utf16("late"))).To(Equal(types.StatusUnsupported))
			addr := uint64(0x100000)
			Expect(fw.AllocatePages(types.AllocateAddress, types.LoaderData, 1, &addr)).To(Equal(types.StatusUnsupported))
		})

		It("should reject a foreign image handle", func() {
			_, _, key, _ := getMap(4096)
			Expect(fw.ExitBootServices(fw.ImageHandle()+1, key)).To(Equal(types.StatusInvalidParameter))
		})
	})

	Context("console", func() {
		It("should record output, echo it and bump the epoch", func() {
			before := fw.Epoch()
			Expect(fw.ConOut().OutputString(utf16("hello\r\n"))).To(Equal(types.StatusSuccess))
			Expect(fw.Output()).To(Equal([]string{"hello\r\n"}))
			Expect(echo.String()).To(Equal("hello\r\n"))
			Expect(fw.Epoch()).To(Equal(before + 1))
		})
	})

	Context("protocols", func() {
		It("should list what it installed", func() {
			Expect(fw.Protocols()).To(Equal([]types.Capability{
				types.GraphicsOutputProtocolGUID,
				types.SimpleFileSystemProtocolGUID,
				types.SimpleTextOutputProtocolGUID,
			}))
		})

		It("should report NotFound for anything else", func() {
			var iface any
			Expect(fw.LocateProtocol(types.FileInfoID, &iface)).To(Equal(types.StatusNotFound))
			Expect(iface).To(BeNil())
		})
	})

	Context("volume", func() {
		var root interfaces.FileProtocol

		BeforeEach(func() {
			var iface any
			Expect(fw.LocateProtocol(types.SimpleFileSystemProtocolGUID, &iface)).To(Equal(types.StatusSuccess))
			sfs := iface.(interfaces.SimpleFileSystemProtocol)
			Expect(sfs.OpenVolume(&root)).To(Equal(types.StatusSuccess))
		})

		open := func(name string, mode types.OpenMode) (interfaces.FileProtocol, types.Status) {
			var h interfaces.FileProtocol
			st := root.Open(&h, utf16(name), mode, 0)
			return h, st
		}

		It("should open files by backslash path", func() {
			h, st := open(`\kernel.elf`, types.FileModeRead)
			Expect(st).To(Equal(types.StatusSuccess))
			Expect(h).NotTo(BeNil())

			_, st = open(`\EFI\BOOT`, types.FileModeRead)
			Expect(st).To(Equal(types.StatusSuccess))
		})

		It("should report missing files and refuse writes", func() {
			_, st := open(`\missing.elf`, types.FileModeRead)
			Expect(st).To(Equal(types.StatusNotFound))

			_, st = open(`\kernel.elf`, types.FileModeRead|types.FileModeWrite)
			Expect(st).To(Equal(types.StatusWriteProtected))
		})

		It("should cap reads at the configured chunk", func() {
			fw.config.ReadChunk = 1024
			h, st := open(`\kernel.elf`, types.FileModeRead)
			Expect(st).To(Equal(types.StatusSuccess))

			buf := make([]byte, 4096)
			size := uint64(len(buf))
			Expect(h.Read(&size, buf)).To(Equal(types.StatusSuccess))
			Expect(size).To(Equal(uint64(1024)))

			var pos uint64
			Expect(h.GetPosition(&pos)).To(Equal(types.StatusSuccess))
			Expect(pos).To(Equal(uint64(1024)))

			Expect(h.SetPosition(^uint64(0))).To(Equal(types.StatusSuccess))
			size = uint64(len(buf))
			Expect(h.Read(&size, buf)).To(Equal(types.StatusSuccess))
			Expect(size).To(BeZero())
		})

		It("should size file info on request", func() {
			h, _ := open(`\kernel.elf`, types.FileModeRead)

			size := uint64(8)
			Expect(h.GetInfo(types.FileInfoID, &size, make([]byte, 8))).To(Equal(types.StatusBufferTooSmall))
			Expect(size).To(Equal(uint64(types.FileInfoHeaderSize + 2*len("kernel.elf\x00"))))

			buf := make([]byte, size)
			Expect(h.GetInfo(types.FileInfoID, &size, buf)).To(Equal(types.StatusSuccess))
			info, err := efi.ParseFileInfo(buf[:size])
			Expect(err).NotTo(HaveOccurred())
			Expect(info.FileSize).To(Equal(uint64(12345)))
			Expect(info.FileName).To(Equal("kernel.elf"))
			Expect(info.Attribute.Has(types.FileReadOnly)).To(BeTrue())
		})

		It("should inject open faults", func() {
			fw.config.OpenFaults = map[string]types.Status{"/kernel.elf": types.StatusVolumeCorrupted}
			_, st := open(`\kernel.elf`, types.FileModeRead)
			Expect(st).To(Equal(types.StatusVolumeCorrupted))
		})
	})

	Context("platform", func() {
		It("should recover a halt", func() {
			halted := fw.Run(func() {
				fw.Jump(0x101000)
				fw.Halt()
			})
			Expect(halted).To(BeTrue())
			Expect(fw.Halted()).To(BeTrue())
			Expect(fw.Jumps()).To(Equal([]uint64{0x101000}))
		})

		It("should keep physical memory sparse", func() {
			Expect(fw.Write(0x100000, []byte{1, 2, 3})).To(Succeed())
			data, err := fw.Read(0x100001, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(Equal([]byte{2, 3}))
		})

		It("should propagate foreign panics", func() {
			Expect(func() {
				fw.Run(func() { panic("boom") })
			}).To(PanicWith("boom"))
		})
	})
})
