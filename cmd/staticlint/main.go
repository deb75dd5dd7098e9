// Package main реализует multichecker для статического анализа кода проекта.
//
// # Запуск
//
// Для запуска анализатора выполните:
//
//	go run cmd/staticlint/main.go ./...
//
// Или соберите бинарный файл:
//
//	go build -o staticlint cmd/staticlint/main.go
//	./staticlint ./...
//
// # Состав анализаторов
//
//   - printf: проверяет корректность форматирования в fmt.Printf и подобных
//   - shadow: обнаруживает затенение переменных
//   - structtag: проверяет корректность тегов структур
//   - unusedresult: находит неиспользуемые результаты функций
//   - все анализаторы класса SA из staticcheck.io
//   - noosexit: собственный анализатор, запрещает прямой вызов os.Exit
//     в функции main пакета main
//
// Анализатор noosexit улучшает тестируемость и graceful shutdown:
// вместо os.Exit используйте возврат ошибки из run() или log.Fatal.
package main

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/shadow"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unusedresult"
	"honnef.co/go/tools/staticcheck"
)

// noOsExitAnalyzer — собственный анализатор, запрещающий os.Exit в main
var noOsExitAnalyzer = &analysis.Analyzer{
	Name: "noosexit",
	Doc:  "запрещает использование os.Exit в функции main пакета main",
	Run:  runNoOsExit,
}

// runNoOsExit выполняет проверку на наличие os.Exit в main.
func runNoOsExit(pass *analysis.Pass) (interface{}, error) {
	// Проверяем только пакет main
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			fn, ok := n.(*ast.FuncDecl)
			if !ok || fn.Name.Name != "main" {
				return true
			}
			if fn.Body == nil {
				return true
			}

			// Вложенные функции (goroutines, defer) не проверяем
			for _, stmt := range fn.Body.List {
				checkStatement(stmt, pass)
			}

			return false // не идём глубже в AST
		})
	}

	return nil, nil
}

// checkStatement проверяет statement на os.Exit (без рекурсии в функции)
func checkStatement(stmt ast.Stmt, pass *analysis.Pass) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if call, ok := s.X.(*ast.CallExpr); ok {
			checkOsExit(call, pass)
		}
	case *ast.AssignStmt:
		for _, expr := range s.Rhs {
			if call, ok := expr.(*ast.CallExpr); ok {
				checkOsExit(call, pass)
			}
		}
	case *ast.IfStmt:
		if s.Body != nil {
			for _, inner := range s.Body.List {
				checkStatement(inner, pass)
			}
		}
		if s.Else != nil {
			checkStatement(s.Else, pass)
		}
	case *ast.BlockStmt:
		for _, inner := range s.List {
			checkStatement(inner, pass)
		}
	case *ast.ForStmt:
		if s.Body != nil {
			for _, inner := range s.Body.List {
				checkStatement(inner, pass)
			}
		}
	case *ast.RangeStmt:
		if s.Body != nil {
			for _, inner := range s.Body.List {
				checkStatement(inner, pass)
			}
		}
	case *ast.SwitchStmt:
		if s.Body != nil {
			for _, inner := range s.Body.List {
				checkStatement(inner, pass)
			}
		}
	case *ast.CaseClause:
		for _, inner := range s.Body {
			checkStatement(inner, pass)
		}
	case *ast.GoStmt:
		// НЕ проверяем goroutine - это не прямой вызов в main
		return
	case *ast.DeferStmt:
		// НЕ проверяем defer
		return
	}
}

// checkOsExit проверяет конкретный вызов функции
func checkOsExit(call *ast.CallExpr, pass *analysis.Pass) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}

	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return
	}

	if ident.Name == "os" && sel.Sel.Name == "Exit" {
		pass.Reportf(call.Pos(),
			"использование os.Exit в функции main запрещено")
	}
}

func main() {
	checks := []*analysis.Analyzer{
		printf.Analyzer,
		shadow.Analyzer,
		structtag.Analyzer,
		unusedresult.Analyzer,
		noOsExitAnalyzer,
	}

	// Все SA анализаторы из staticcheck
	for _, v := range staticcheck.Analyzers {
		checks = append(checks, v.Analyzer)
	}

	multichecker.Main(checks...)
}
