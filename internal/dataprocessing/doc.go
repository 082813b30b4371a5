// Package dataprocessing turns uploaded workbooks into datasets and
// classifies their rows.
//
// ParseWorkbook reads the first sheet of an .xlsx file. Classifier tags
// rows with a gender label and partitions them by keyword match:
//
//	ds, err := dataprocessing.ParseWorkbook(upload, logger)
//	c := dataprocessing.NewClassifier(cfg.Filter)
//	tagged, cond := c.TagGender(ds, gender.NewResolver(nil, logger))
//	part, cond := c.Partition(tagged, snapshot.Matcher)
//
// A missing column or an empty keyword set never fails a run. The
// affected step is skipped and a domain.Condition describes why.
package dataprocessing
