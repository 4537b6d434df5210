package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/prepstack/examprep-service/internal/models"
)

const questionSheet = "Questions"

// Column layout of the question workbook. Answers live in one cell,
// pipe-separated, correct options prefixed with "*":
//
//	*Platform events|Apex triggers|Scheduled jobs
var questionColumns = []string{
	"topic_slug", "type", "content", "code_snippet", "difficulty",
	"explanation", "reference_url", "is_premium", "is_active", "answers",
}

const (
	answerSeparator = "|"
	correctMarker   = "*"
)

// ===== EXPORT =====

func (s *questionBankService) ExportQuestions(ctx context.Context, examType string, w io.Writer) error {
	s.logger.Info("Exporting questions", "exam_type", examType)

	exam, err := s.getExamByType(ctx, examType)
	if err != nil {
		return err
	}

	topics, err := s.repo.Topic().ListByExam(ctx, exam.ID, false)
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}
	slugByID := make(map[uint]string, len(topics))
	for _, topic := range topics {
		slugByID[topic.ID] = topic.Slug
	}

	questions, err := s.repo.Question().ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("failed to list questions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(questionSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := make([]interface{}, len(questionColumns))
	for i, col := range questionColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(questionSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, question := range questions {
		row := []interface{}{
			slugByID[question.TopicID],
			string(question.Type),
			question.Content,
			stringOrEmpty(question.CodeSnippet),
			question.Difficulty,
			question.Explanation,
			stringOrEmpty(question.ReferenceURL),
			question.IsPremium,
			question.IsActive,
			formatAnswerCell(question.Answers),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(questionSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Questions exported", "exam_type", examType, "count", len(questions))
	return nil
}

// ===== IMPORT =====

// ImportQuestions loads a workbook in the export layout. Rows are
// independent: a bad row is reported and skipped, the rest still import.
func (s *questionBankService) ImportQuestions(ctx context.Context, examType string, r io.Reader) (*ImportResult, error) {
	s.logger.Info("Importing questions", "exam_type", examType)

	exam, err := s.getExamByType(ctx, examType)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(questionSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", questionSheet, err)
	}
	if len(rows) == 0 {
		return &ImportResult{}, nil
	}

	result := &ImportResult{TotalRows: len(rows) - 1}
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		question, err := s.parseQuestionRow(ctx, exam, row)
		if err != nil {
			result.SkippedRows++
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if err := s.repo.Question().Create(ctx, question); err != nil {
			result.SkippedRows++
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.ImportedRows++
	}

	s.logger.Info("Questions imported",
		"exam_type", examType, "imported", result.ImportedRows, "skipped", result.SkippedRows)
	return result, nil
}

func (s *questionBankService) parseQuestionRow(ctx context.Context, exam *models.Exam, row []string) (*models.Question, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	topic, err := resolveTopic(ctx, s.repo, exam.ID, cell(0))
	if err != nil {
		return nil, err
	}

	questionType := models.QuestionType(cell(1))
	if questionType != models.SingleChoice && questionType != models.MultipleChoice {
		return nil, fmt.Errorf("unknown question type %q", cell(1))
	}

	content := cell(2)
	if content == "" {
		return nil, fmt.Errorf("content is empty")
	}

	difficulty, err := strconv.Atoi(cell(4))
	if err != nil || difficulty < 1 || difficulty > 5 {
		return nil, fmt.Errorf("difficulty must be 1-5, got %q", cell(4))
	}

	answers, err := parseAnswerCell(cell(9))
	if err != nil {
		return nil, err
	}
	if err := validateAnswerSet(questionType, answers); err != nil {
		return nil, err
	}

	question := &models.Question{
		ExamID:      exam.ID,
		TopicID:     topic.ID,
		Type:        questionType,
		Content:     content,
		Difficulty:  difficulty,
		Explanation: cell(5),
		IsPremium:   parseBoolCell(cell(7)),
		IsActive:    cell(8) == "" || parseBoolCell(cell(8)),
		Answers:     answers,
	}
	if snippet := cell(3); snippet != "" {
		question.CodeSnippet = &snippet
	}
	if ref := cell(6); ref != "" {
		question.ReferenceURL = &ref
	}
	return question, nil
}

// ===== CELL FORMATS =====

func formatAnswerCell(answers []models.Answer) string {
	parts := make([]string, 0, len(answers))
	for _, a := range answers {
		content := a.Content
		if a.IsCorrect {
			content = correctMarker + content
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, answerSeparator)
}

func parseAnswerCell(cell string) ([]models.Answer, error) {
	if cell == "" {
		return nil, fmt.Errorf("answers cell is empty")
	}

	parts := strings.Split(cell, answerSeparator)
	answers := make([]models.Answer, 0, len(parts))
	for i, part := range parts {
		content := strings.TrimSpace(part)
		isCorrect := strings.HasPrefix(content, correctMarker)
		if isCorrect {
			content = strings.TrimSpace(strings.TrimPrefix(content, correctMarker))
		}
		if content == "" {
			return nil, fmt.Errorf("answer %d is empty", i+1)
		}
		answers = append(answers, models.Answer{
			Content:   content,
			IsCorrect: isCorrect,
			SortOrder: i + 1,
		})
	}
	if len(answers) < 2 {
		return nil, fmt.Errorf("questions need at least 2 answers, got %d", len(answers))
	}
	return answers, nil
}

func parseBoolCell(cell string) bool {
	v, err := strconv.ParseBool(strings.ToLower(cell))
	return err == nil && v
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
