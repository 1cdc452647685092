package render

// baseCSS is the shared stylesheet for every report. The footer frame
// block is xhtml2pdf syntax that wkhtmltopdf ignores harmlessly.
const baseCSS = `
@font-face {
    font-family: 'NotoSans';
    src: url('static/fonts/NotoSans-Regular.ttf');
}
@font-face {
    font-family: 'NotoSans';
    src: url('static/fonts/NotoSans-Bold.ttf');
    font-weight: bold;
}
body {
    font-family: 'NotoSans', sans-serif;
    font-size: 12pt;
    line-height: 1.5;
    color: #333;
}
h1 {
    font-size: 20pt;
    text-align: center;
    margin-bottom: 0.5em;
}
h2 {
    font-size: 16pt;
    border-bottom: 1px solid #e0e0e0;
    padding-bottom: 0.2em;
    margin-top: 1.5em;
}
h3 {
    font-size: 14pt;
    margin-top: 1em;
}
.report-date {
    text-align: right;
    font-size: 10pt;
    color: #666;
}
.footer-text {
    text-align: center;
    font-size: 10pt;
    color: #666;
    margin-top: 2em;
}
table {
    width: 100%;
    border-collapse: collapse;
    margin: 1em 0;
}
th, td {
    border: 1px solid #ccc;
    padding: 8px;
    text-align: left;
}
th {
    background-color: #f5f5f5;
}
.price-highlight {
    border: 1px solid #e0e0e0;
    padding: 12px;
    background-color: #f0f7ff;
    margin: 1em 0;
}
.price-main {
    font-size: 14pt;
    font-weight: bold;
}
.section {
    margin-bottom: 1.8em;
    page-break-inside: avoid;
    padding-top: 1em;
    border-top: 1px solid #e0e0e0;
}
.section:first-of-type {
    border-top: none;
    padding-top: 0;
}
ul, ol {
    margin: 0.5em 0;
    padding-left: 2em;
}
li {
    margin-bottom: 0.3em;
}
@page {
    size: A4;
    margin: 2cm 2cm 2.5cm 2cm;
    @frame footer_frame {
        -pdf-frame-content: footer_content;
        left: 2cm;
        width: 17cm;
        top: 26.5cm;
        height: 1cm;
    }
}
`
