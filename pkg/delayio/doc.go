// Package delayio delivers stream data in small, delayed chunks.
//
// Incremental consumers such as parsers and protocol decoders often break
// only when their input arrives fragmented, as it does over a network. A
// Proxy wraps a source Device and releases its bytes a few at a time on a
// timer so tests can reproduce that:
//
//	delayio.SeedJitter(0) // reproducible chunk sizes
//	p := delayio.NewFromBytes(data)
//	p.SetChunkSize(8)
//	p.SetJitterRange(7) // chunks of 1 to 15 bytes
//	if err := p.Open(); err != nil {
//		return err
//	}
//	defer p.Close()
//	dec := xml.NewDecoder(delayio.NewReader(p, time.Second))
package delayio
