package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllBQSectionsOrderAndTitles(t *testing.T) {
	t.Parallel()

	sections := AllBQSections()
	assert.Len(t, sections, 14)
	assert.Equal(t, SectionIncomingSupply, sections[0])
	assert.Equal(t, SectionPrelimsTesting, sections[13])

	for _, s := range sections {
		assert.NotEmpty(t, s.Title(), string(s))
	}
	assert.Equal(t, "Preliminaries, Testing & Certification", SectionPrelimsTesting.Title())

	// Unknown sections fall back to their raw value.
	assert.Equal(t, "plumbing", BQSection("plumbing").Title())
}

func TestBillSubtotalAndSectionItems(t *testing.T) {
	t.Parallel()

	bill := BillOfQuantities{Items: []BQLineItem{
		{Section: SectionLighting, Description: "LED downlight", Quantity: 10, UnitPrice: 150, Total: 1500},
		{Section: SectionLighting, Description: "Ceiling fitting", Quantity: 4, UnitPrice: 220, Total: 880},
		{Section: SectionBoards, Description: "12-way surface DB", Quantity: 1, UnitPrice: 1850, Total: 1850},
	}}

	assert.InDelta(t, 4230.0, bill.Subtotal(), 0.001)
	assert.Len(t, bill.SectionItems(SectionLighting), 2)
	assert.Len(t, bill.SectionItems(SectionBoards), 1)
	assert.Empty(t, bill.SectionItems(SectionSolar))
}
